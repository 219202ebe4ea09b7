package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/ratelimit"
	"github.com/vyrodovalexey/avainsure/internal/util"
)

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// Profile names the limiter in logs and metrics.
	Profile string

	// Limiter is the rate limiter to use.
	Limiter ratelimit.Limiter

	// KeyFunc extracts the rate limit key from the request. Defaults to
	// the peer address with no trusted proxies.
	KeyFunc ratelimit.KeyFunc

	Logger  observability.Logger
	Metrics *observability.Metrics

	// SkipPaths is a list of paths to skip rate limiting.
	SkipPaths []string
}

// RateLimit returns a middleware that throttles requests per client.
// Rejected requests are recorded as rate limit errors and never reach the
// handler. Limiter failures let the request through.
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	if config.Limiter == nil {
		config.Limiter = ratelimit.NewNoopLimiter()
	}
	if config.KeyFunc == nil {
		config.KeyFunc = (*ratelimit.ClientIPExtractor)(nil).KeyFunc()
	}
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}

	skipPaths := buildSkipPaths(config.SkipPaths)
	prefix := config.Profile + ":"

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		key := prefix + config.KeyFunc(c.Request)

		result, err := config.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			config.Logger.WithContext(c.Request.Context()).Error("rate limit check failed",
				observability.String("profile", config.Profile),
				observability.String("key", key),
				observability.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(result.ResetAfter).Unix(), 10))

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
			config.Metrics.RecordRateLimitHit(config.Profile)

			_ = c.Error(util.NewRateLimitError(result.Limit, result.RetryAfter))
			c.Abort()
			return
		}

		c.Next()
	}
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
