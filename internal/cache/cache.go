package cache

import (
	"context"
	"errors"
	"time"

	"github.com/vyrodovalexey/avainsure/internal/observability"
)

// Common cache errors.
var (
	// ErrCacheMiss indicates that the key was not found in the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCircuitOpen indicates that the backend is considered down and the
	// call was not attempted.
	ErrCircuitOpen = errors.New("cache circuit breaker is open")
)

// Cache is the main interface for caching.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns ErrCacheMiss if the key is not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the given TTL.
	// A TTL of 0 means the entry never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// options holds the collaborators shared by both backends.
type options struct {
	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
	breaker BreakerSettings
}

// Option configures a cache backend.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer sets the tracer used for client spans.
func WithTracer(t *observability.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithBreakerSettings overrides the Redis circuit breaker thresholds.
func WithBreakerSettings(s BreakerSettings) Option {
	return func(o *options) {
		o.breaker = s
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:  observability.NopLogger(),
		breaker: DefaultBreakerSettings(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// resultLabel maps an operation outcome to its metric label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return observability.CacheResultOK
	case errors.Is(err, ErrCacheMiss):
		return observability.CacheResultMiss
	default:
		return observability.CacheResultError
	}
}
