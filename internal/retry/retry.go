package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Default retry configuration constants.
const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 100 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
	DefaultJitterFactor   = 0.25
)

// Config contains retry configuration parameters. A nil Config uses the
// defaults; zero durations and jitter fall back to them too.
type Config struct {
	// MaxRetries is the number of attempts after the first one. Zero
	// disables retries.
	MaxRetries int

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// JitterFactor adds up to this fraction of the backoff, in [0, 1].
	JitterFactor float64
}

func (c *Config) maxRetries() int {
	if c == nil {
		return DefaultMaxRetries
	}
	return max(c.MaxRetries, 0)
}

func (c *Config) initialBackoff() time.Duration {
	if c == nil || c.InitialBackoff <= 0 {
		return DefaultInitialBackoff
	}
	return c.InitialBackoff
}

func (c *Config) maxBackoff() time.Duration {
	if c == nil || c.MaxBackoff <= 0 {
		return DefaultMaxBackoff
	}
	return c.MaxBackoff
}

func (c *Config) jitterFactor() float64 {
	if c == nil || c.JitterFactor <= 0 {
		return DefaultJitterFactor
	}
	return math.Min(c.JitterFactor, 1)
}

// Func is an operation that can be retried. It receives the context
// passed to Do.
type Func func(ctx context.Context) error

// OnRetryFunc is called before sleeping ahead of retry number attempt.
type OnRetryFunc func(attempt int, err error, backoff time.Duration)

// Options contains optional retry behavior.
type Options struct {
	OnRetry OnRetryFunc
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, returns a Permanent error, the retries
// are exhausted or ctx is done. It returns the last error from fn.
func Do(ctx context.Context, cfg *Config, fn Func, opts *Options) error {
	maxRetries := cfg.maxRetries()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return errors.Join(lastErr, err)
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt == maxRetries {
			break
		}

		backoff := Backoff(attempt, cfg.initialBackoff(), cfg.maxBackoff(), cfg.jitterFactor())
		if opts != nil && opts.OnRetry != nil {
			opts.OnRetry(attempt+1, lastErr, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(lastErr, ctx.Err())
		case <-timer.C:
		}
	}

	return lastErr
}

// Backoff returns initial*2^attempt plus jitter, capped at maxBackoff.
func Backoff(attempt int, initial, maxBackoff time.Duration, jitterFactor float64) time.Duration {
	backoff := float64(initial) * math.Pow(2, float64(attempt))

	//nolint:gosec // G404: jitter for retry timing is not security-sensitive
	backoff += backoff * jitterFactor * rand.Float64()

	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}
