// Package retry runs an operation with exponential backoff and jitter.
//
// The services use it when establishing their PostgreSQL and Redis
// connections at startup, where the dependency may still be coming up:
//
//	err := retry.Do(ctx, &retry.Config{MaxRetries: cfg.ConnectRetries}, func(ctx context.Context) error {
//	    return db.PingContext(ctx)
//	}, &retry.Options{
//	    OnRetry: func(attempt int, err error, backoff time.Duration) {
//	        logger.Warn("database not ready", observability.Int("attempt", attempt))
//	    },
//	})
//
// Errors wrapped with Permanent stop the loop immediately.
package retry
