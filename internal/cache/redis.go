package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/avainsure/internal/config"
	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/retry"
)

// redisBreakerName names the Redis circuit breaker in logs and metrics.
const redisBreakerName = "redis-cache"

// pingTimeout bounds the connectivity check performed by NewClient.
const pingTimeout = 5 * time.Second

// NewClient creates a Redis client from cfg and verifies the connection.
// The client is shared by the cache and the rate limiter store.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger observability.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	err := retry.Do(ctx, &retry.Config{MaxRetries: cfg.ConnectRetries}, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return client.Ping(pingCtx).Err()
	}, &retry.Options{
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			logger.Warn("redis not ready, retrying",
				observability.Int("attempt", attempt),
				observability.Duration("backoff", backoff),
				observability.Error(err),
			)
		},
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}

// RedisCache implements Cache on top of a Redis client.
type RedisCache struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    observability.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	breaker   *breaker
}

// NewRedisCache creates a Redis-backed cache. Keys are stored under
// prefix. The client is owned by the caller; Close does not close it.
func NewRedisCache(client redis.UniversalClient, prefix string, opts ...Option) *RedisCache {
	o := buildOptions(opts)

	return &RedisCache{
		client:    client,
		keyPrefix: prefix,
		logger:    o.logger,
		metrics:   o.metrics,
		tracer:    o.tracer,
		breaker:   newBreaker(redisBreakerName, o.breaker, o.logger, o.metrics),
	}
}

func (c *RedisCache) resolveKey(key string) string {
	return c.keyPrefix + key
}

// do runs a Redis call inside a client span and the circuit breaker, and
// records its outcome.
func (c *RedisCache) do(
	ctx context.Context,
	operation, key string,
	fn func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	ctx, span := c.tracer.StartClientSpan(ctx, "redis", operation)

	v, err := c.breaker.execute(func() ([]byte, error) {
		return fn(ctx)
	})

	if err != nil && !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("redis cache operation failed",
			observability.String("operation", operation),
			observability.String("key", key),
			observability.Error(err))
		observability.EndSpan(span, err)
	} else {
		span.End()
	}

	return v, err
}

// Get retrieves a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := c.do(ctx, "get", key, func(ctx context.Context) ([]byte, error) {
		val, err := c.client.Get(ctx, c.resolveKey(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return val, err
	})

	switch {
	case err == nil:
		c.metrics.RecordCacheOperation("get", observability.CacheResultHit)
	case errors.Is(err, ErrCacheMiss):
		c.metrics.RecordCacheOperation("get", observability.CacheResultMiss)
	default:
		c.metrics.RecordCacheOperation("get", observability.CacheResultError)
	}

	return v, err
}

// Set stores a value in the cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	_, err := c.do(ctx, "set", key, func(ctx context.Context) ([]byte, error) {
		return nil, c.client.Set(ctx, c.resolveKey(key), value, ttl).Err()
	})
	c.metrics.RecordCacheOperation("set", resultLabel(err))
	return err
}

// Delete removes a value from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	_, err := c.do(ctx, "delete", key, func(ctx context.Context) ([]byte, error) {
		return nil, c.client.Del(ctx, c.resolveKey(key)).Err()
	})
	c.metrics.RecordCacheOperation("delete", resultLabel(err))
	return err
}

// Close is a no-op; the client is owned by the caller.
func (c *RedisCache) Close() error {
	return nil
}
