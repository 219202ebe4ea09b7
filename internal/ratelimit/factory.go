package ratelimit

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/avainsure/internal/config"
	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/ratelimit/store"
)

// FactoryConfig holds configuration for creating a rate limiter.
type FactoryConfig struct {
	// Name namespaces the limiter's keys in a shared store.
	Name string

	// Algorithm is the rate limiting algorithm to use.
	Algorithm Algorithm

	// Requests is the maximum number of requests allowed in the window.
	Requests int

	// Window is the time window for the rate limit.
	Window time.Duration

	// Store holds the fixed window counters. The fixed window algorithm
	// requires it; the token bucket algorithm rejects it.
	Store store.Store

	// Logger for the rate limiter.
	Logger observability.Logger
}

// NewLimiter creates a new rate limiter based on the configuration.
func NewLimiter(cfg *FactoryConfig) (Limiter, error) {
	if cfg == nil {
		return nil, errors.New("rate limiter config is nil")
	}
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return nil, fmt.Errorf("invalid limit %d per %s", cfg.Requests, cfg.Window)
	}

	switch cfg.Algorithm {
	case AlgorithmFixedWindow, "":
		if cfg.Store == nil {
			return nil, errors.New("fixed window limiter requires a store")
		}
		return NewFixedWindowLimiter(cfg.Store, cfg.Name, cfg.Requests, cfg.Window), nil
	case AlgorithmTokenBucket:
		if cfg.Store != nil {
			return nil, errors.New("token bucket limiter does not support a shared store")
		}
		return NewTokenBucketLimiter(cfg.Requests, cfg.Window, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s", cfg.Algorithm)
	}
}

// Profiles holds one limiter per named profile.
type Profiles struct {
	limiters map[string]Limiter
	store    store.Store
}

// NewProfiles builds the default, quote and contribution limiters from
// the configuration. A Redis store requires a client.
func NewProfiles(
	cfg config.RateLimitConfig,
	client redis.UniversalClient,
	prefix string,
	logger observability.Logger,
) (*Profiles, error) {
	p := &Profiles{limiters: make(map[string]Limiter)}

	if !cfg.Enabled {
		for _, profile := range cfg.Profiles() {
			p.limiters[profile.Name] = NewNoopLimiter()
		}
		return p, nil
	}

	switch store.Type(cfg.Store) {
	case store.TypeMemory, "":
		if Algorithm(cfg.Algorithm) != AlgorithmTokenBucket {
			p.store = store.NewMemoryStore()
		}
	case store.TypeRedis:
		if client == nil {
			return nil, errors.New("redis rate limit store requires redis to be enabled")
		}
		p.store = store.NewRedisStore(client, prefix+store.DefaultRedisPrefix)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Store)
	}

	for _, profile := range cfg.Profiles() {
		limiter, err := NewLimiter(&FactoryConfig{
			Name:      profile.Name,
			Algorithm: Algorithm(cfg.Algorithm),
			Requests:  profile.Max,
			Window:    profile.Window,
			Store:     p.store,
			Logger:    logger,
		})
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to create %s limiter: %w", profile.Name, err)
		}
		p.limiters[profile.Name] = limiter
	}

	return p, nil
}

// Get returns the limiter of the named profile, falling back to the
// default profile.
func (p *Profiles) Get(name string) Limiter {
	if l, ok := p.limiters[name]; ok {
		return l
	}
	if l, ok := p.limiters[config.ProfileDefault]; ok {
		return l
	}
	return NewNoopLimiter()
}

// Close releases limiter and store resources.
func (p *Profiles) Close() error {
	var errs []error
	for _, l := range p.limiters {
		if c, ok := l.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	if p.store != nil {
		errs = append(errs, p.store.Close())
	}
	return errors.Join(errs...)
}
