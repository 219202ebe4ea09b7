package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/vyrodovalexey/avainsure/internal/ratelimit/store"
)

// expiryBuffer keeps distributed counters alive slightly past their
// window to absorb clock skew between instances.
const expiryBuffer = time.Second

// FixedWindowLimiter implements the fixed window rate limiting algorithm.
// Time is divided into windows aligned to the epoch; request limit+1
// within a window is rejected. Counters live in a store, so limiters
// sharing a Redis store enforce one limit across instances.
type FixedWindowLimiter struct {
	store  store.Store
	name   string
	limit  int
	window time.Duration
}

// NewFixedWindowLimiter creates a new fixed window rate limiter over s.
// The name namespaces keys in a shared store.
func NewFixedWindowLimiter(s store.Store, name string, limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		store:  s,
		name:   name,
		limit:  limit,
		window: window,
	}
}

// Allow implements Limiter.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	return l.AllowN(ctx, key, 1)
}

// AllowN implements Limiter. The counter is incremented before the check
// so concurrent instances never admit more than limit requests per window.
func (l *FixedWindowLimiter) AllowN(ctx context.Context, key string, n int) (*Result, error) {
	now := time.Now()
	windowStart := l.getWindowStart(now)

	count, err := l.store.IncrementWithExpiry(ctx, l.windowKey(key, windowStart), int64(n), l.window+expiryBuffer)
	if err != nil {
		return nil, fmt.Errorf("failed to increment window counter: %w", err)
	}

	return l.result(int(count) <= l.limit, int(count), windowStart, now), nil
}

// getWindowStart returns the start time of the window containing t.
func (l *FixedWindowLimiter) getWindowStart(t time.Time) time.Time {
	windowNanos := l.window.Nanoseconds()
	return time.Unix(0, (t.UnixNano()/windowNanos)*windowNanos)
}

// result builds the Result for a counter value.
func (l *FixedWindowLimiter) result(allowed bool, count int, windowStart, now time.Time) *Result {
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	resetAfter := windowStart.Add(l.window).Sub(now)
	if resetAfter < 0 {
		resetAfter = 0
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = resetAfter
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.limit,
		Remaining:  remaining,
		ResetAfter: resetAfter,
		RetryAfter: retryAfter,
	}
}

// windowKey returns the store key of key's counter in the given window.
func (l *FixedWindowLimiter) windowKey(key string, windowStart time.Time) string {
	return fmt.Sprintf("%s:fw:%s:%d", l.name, key, windowStart.UnixNano())
}
