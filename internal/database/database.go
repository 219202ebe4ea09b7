// Package database opens the PostgreSQL connection pool and provides the
// helpers shared by the stores: driver error classification and
// per-operation tracing and timing.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vyrodovalexey/avainsure/internal/config"
	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/retry"
)

// DriverName is the database/sql driver registered by lib/pq.
const DriverName = "postgres"

// pingTimeout bounds the connectivity check performed by Open.
const pingTimeout = 5 * time.Second

// PostgreSQL error codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Open opens the connection pool described by cfg and verifies it,
// retrying the ping up to cfg.ConnectRetries times.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger observability.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	db, err := sqlx.Open(DriverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	Configure(db, cfg)

	err = retry.Do(ctx, &retry.Config{MaxRetries: cfg.ConnectRetries}, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	}, &retry.Options{
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			logger.Warn("database not ready, retrying",
				observability.Int("attempt", attempt),
				observability.Duration("backoff", backoff),
				observability.Error(err),
			)
		},
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Configure applies the pool settings of cfg to db.
func Configure(db *sqlx.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

// Wrap wraps an existing *sql.DB, such as a sqlmock connection.
func Wrap(db *sql.DB) *sqlx.DB {
	return sqlx.NewDb(db, DriverName)
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

// ConstraintName returns the violated constraint of a driver error, if any.
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

func hasCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

// IsNotFound reports whether err means the query matched no row.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// Instrumentation traces and times store operations. The zero value is
// usable and records nothing.
type Instrumentation struct {
	Tracer  *observability.Tracer
	Metrics *observability.Metrics
}

// Run executes fn inside a client span and records its duration under
// operation.
func (i Instrumentation) Run(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	ctx, span := i.Tracer.StartClientSpan(ctx, "postgresql", operation)
	start := time.Now()

	err := fn(ctx)

	i.Metrics.ObserveDBOperation(operation, time.Since(start))
	if IsNotFound(err) {
		span.End()
	} else {
		observability.EndSpan(span, err)
	}

	return err
}
