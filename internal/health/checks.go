package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// DependencyType classifies a dependency.
type DependencyType string

const (
	// DependencyTypeDatabase is a database dependency.
	DependencyTypeDatabase DependencyType = "database"
	// DependencyTypeCache is a cache dependency.
	DependencyTypeCache DependencyType = "cache"
	// DependencyTypeCustom is any other dependency.
	DependencyTypeCustom DependencyType = "custom"
)

// PingFunc verifies a dependency is reachable.
type PingFunc func(ctx context.Context) error

// DependencyCheck is a named check of a single dependency.
type DependencyCheck struct {
	name     string
	depType  DependencyType
	checkFn  PingFunc
	critical bool
}

// DependencyCheckOption configures a DependencyCheck.
type DependencyCheckOption func(*DependencyCheck)

// WithCritical overrides whether a failure makes the service unhealthy.
func WithCritical(critical bool) DependencyCheckOption {
	return func(d *DependencyCheck) {
		d.critical = critical
	}
}

// NewDependencyCheck creates a critical dependency check.
func NewDependencyCheck(
	name string,
	depType DependencyType,
	checkFn PingFunc,
	opts ...DependencyCheckOption,
) *DependencyCheck {
	d := &DependencyCheck{
		name:     name,
		depType:  depType,
		checkFn:  checkFn,
		critical: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the check name.
func (d *DependencyCheck) Name() string {
	return d.name
}

// Type returns the dependency type.
func (d *DependencyCheck) Type() DependencyType {
	return d.depType
}

// IsCritical reports whether a failure makes the service unhealthy.
func (d *DependencyCheck) IsCritical() bool {
	return d.critical
}

// Check runs the check and returns its latency.
func (d *DependencyCheck) Check(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := d.checkFn(ctx)
	return time.Since(start), err
}

// SQLCheck pings the database pool. It is critical by default.
func SQLCheck(name string, db *sqlx.DB, opts ...DependencyCheckOption) *DependencyCheck {
	return NewDependencyCheck(name, DependencyTypeDatabase, func(ctx context.Context) error {
		if db == nil {
			return errors.New("database connection is nil")
		}
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		return nil
	}, opts...)
}

// CacheCheck pings the cache. Requests survive a cache outage, so the
// check only degrades the service unless marked critical.
func CacheCheck(name string, ping PingFunc, opts ...DependencyCheckOption) *DependencyCheck {
	opts = append([]DependencyCheckOption{WithCritical(false)}, opts...)
	return NewDependencyCheck(name, DependencyTypeCache, func(ctx context.Context) error {
		if ping == nil {
			return errors.New("cache client is nil")
		}
		if err := ping(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
		return nil
	}, opts...)
}
