package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vyrodovalexey/avainsure/internal/observability"
)

// Purger is implemented by services that delete expired records.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeScheduler runs a Purger on a cron schedule.
type PurgeScheduler struct {
	purger   Purger
	schedule string
	timeout  time.Duration
	logger   observability.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewPurgeScheduler creates a scheduler. The schedule accepts standard
// five-field cron expressions and descriptors such as "@every 10m". Each
// run is bounded by timeout.
func NewPurgeScheduler(
	purger Purger,
	schedule string,
	timeout time.Duration,
	logger observability.Logger,
) (*PurgeScheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	p := &PurgeScheduler{
		purger:   purger,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger.With(observability.String("component", "quote-purge")),
		cron:     cron.New(),
	}
	if _, err := p.cron.AddFunc(schedule, func() { p.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("failed to schedule purge: %w", err)
	}

	return p, nil
}

// Start begins running the job. Calling Start while running is a no-op.
func (p *PurgeScheduler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("purge scheduler started", observability.String("schedule", p.schedule))
}

// RunOnce performs a single purge.
func (p *PurgeScheduler) RunOnce(ctx context.Context) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	removed, err := p.purger.PurgeExpired(ctx)
	if err != nil {
		p.logger.Error("expired quote purge failed", observability.Error(err))
		return
	}

	if removed > 0 {
		p.logger.Info("expired quotes purged", observability.Int64("deleted", removed))
	} else {
		p.logger.Debug("no expired quotes to purge")
	}
}

// Stop stops the scheduler and waits for a running purge, up to ctx.
func (p *PurgeScheduler) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}
	p.running = false

	select {
	case <-p.cron.Stop().Done():
		p.logger.Info("purge scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
