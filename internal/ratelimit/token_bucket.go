package ratelimit

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vyrodovalexey/avainsure/internal/observability"
)

// Ensure TokenBucketLimiter implements io.Closer.
var _ io.Closer = (*TokenBucketLimiter)(nil)

// Default bucket housekeeping settings.
const (
	DefaultBucketCleanupInterval = 5 * time.Minute
	DefaultBucketTTL             = 10 * time.Minute
)

// TokenBucketLimiter implements the token bucket algorithm with one
// rate.Limiter per key. Buckets live in process memory only.
type TokenBucketLimiter struct {
	limit  rate.Limit
	burst  int
	window time.Duration
	logger observability.Logger

	buckets sync.Map

	cleanupInterval time.Duration
	bucketTTL       time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

// bucket pairs a rate.Limiter with the time it was last used.
type bucket struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// NewTokenBucketLimiter creates a limiter that refills requests tokens
// per window up to a burst of requests. It starts a background goroutine
// that drops idle buckets; call Close to stop it.
func NewTokenBucketLimiter(requests int, window time.Duration, logger observability.Logger) *TokenBucketLimiter {
	return NewTokenBucketLimiterWithTTL(requests, window, DefaultBucketCleanupInterval, DefaultBucketTTL, logger)
}

// NewTokenBucketLimiterWithTTL creates a token bucket limiter with custom
// housekeeping settings.
func NewTokenBucketLimiterWithTTL(
	requests int,
	window time.Duration,
	cleanupInterval, bucketTTL time.Duration,
	logger observability.Logger,
) *TokenBucketLimiter {
	if logger == nil {
		logger = observability.NopLogger()
	}

	l := &TokenBucketLimiter{
		limit:           rate.Limit(float64(requests) / window.Seconds()),
		burst:           requests,
		window:          window,
		logger:          logger,
		cleanupInterval: cleanupInterval,
		bucketTTL:       bucketTTL,
		stopCleanup:     make(chan struct{}),
	}

	go l.startCleanupLoop()

	return l
}

// Allow implements Limiter.
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return l.AllowN(ctx, key, 1)
}

// AllowN implements Limiter.
func (l *TokenBucketLimiter) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	b := l.getBucket(key, now)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSeen = now

	allowed := true
	var retryAfter time.Duration

	r := b.limiter.ReserveN(now, n)
	switch {
	case !r.OK():
		allowed = false
		retryAfter = l.window
	case r.DelayFrom(now) > 0:
		allowed = false
		retryAfter = r.DelayFrom(now)
		r.CancelAt(now)
	}

	tokens := b.limiter.TokensAt(now)
	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.burst,
		Remaining:  remaining,
		ResetAfter: l.timeToFull(tokens),
		RetryAfter: retryAfter,
	}, nil
}

// timeToFull returns how long the bucket needs to refill completely.
func (l *TokenBucketLimiter) timeToFull(tokens float64) time.Duration {
	missing := float64(l.burst) - tokens
	if missing <= 0 || l.limit <= 0 {
		return 0
	}
	return time.Duration(missing / float64(l.limit) * float64(time.Second))
}

// getBucket returns the bucket for key, creating it when absent.
func (l *TokenBucketLimiter) getBucket(key string, now time.Time) *bucket {
	if value, ok := l.buckets.Load(key); ok {
		return value.(*bucket)
	}
	value, _ := l.buckets.LoadOrStore(key, &bucket{
		limiter:  rate.NewLimiter(l.limit, l.burst),
		lastSeen: now,
	})
	return value.(*bucket)
}

// Cleanup removes buckets idle for longer than ttl.
func (l *TokenBucketLimiter) Cleanup(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)

	l.buckets.Range(func(key, value any) bool {
		b := value.(*bucket)
		b.mu.Lock()
		idle := b.lastSeen.Before(cutoff)
		b.mu.Unlock()

		if idle {
			l.buckets.Delete(key)
		}
		return true
	})
}

// startCleanupLoop runs the periodic cleanup of idle buckets.
func (l *TokenBucketLimiter) startCleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup(l.bucketTTL)
		case <-l.stopCleanup:
			return
		}
	}
}

// Close stops the background cleanup goroutine. Safe to call multiple
// times.
func (l *TokenBucketLimiter) Close() error {
	l.cleanupOnce.Do(func() {
		close(l.stopCleanup)
	})
	return nil
}
