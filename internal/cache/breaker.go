package cache

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/avainsure/internal/observability"
)

// BreakerSettings holds the circuit breaker thresholds for Redis calls.
type BreakerSettings struct {
	// Threshold is the minimum number of requests in an interval before
	// the failure ratio is evaluated.
	Threshold int

	// FailureRatio trips the breaker once reached.
	FailureRatio float64

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
}

// DefaultBreakerSettings returns the default Redis breaker thresholds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Threshold:    5,
		FailureRatio: 0.5,
		Timeout:      30 * time.Second,
	}
}

// breaker wraps gobreaker.CircuitBreaker for cache calls.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(name string, s BreakerSettings, logger observability.Logger, metrics *observability.Metrics) *breaker {
	threshold := safeIntToUint32(s.Threshold)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    s.Timeout,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < threshold {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			metrics.SetCircuitBreakerState(name, int(to))
		},
		// A miss is a healthy answer from the server.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
	}

	metrics.SetCircuitBreakerState(name, int(gobreaker.StateClosed))

	return &breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// execute runs fn through the breaker. Rejections are reported as
// ErrCircuitOpen.
func (b *breaker) execute(fn func() ([]byte, error)) ([]byte, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	if v == nil {
		return nil, err
	}
	return v.([]byte), err
}

// state returns the current breaker state.
func (b *breaker) state() gobreaker.State {
	return b.cb.State()
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}
