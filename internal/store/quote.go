package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vyrodovalexey/avainsure/internal/database"
	"github.com/vyrodovalexey/avainsure/internal/domain"
)

const quoteColumns = `id, product_type, age, coverage_amount, term_years, smoker,
	monthly_premium, annual_premium, created_at, expires_at`

// QuoteStore persists calculated quotes.
type QuoteStore struct {
	db   *sqlx.DB
	inst database.Instrumentation
}

// NewQuoteStore creates a quote store.
func NewQuoteStore(db *sqlx.DB, inst database.Instrumentation) *QuoteStore {
	return &QuoteStore{db: db, inst: inst}
}

// Create inserts q.
func (s *QuoteStore) Create(ctx context.Context, q *domain.Quote) error {
	err := s.inst.Run(ctx, "quotes.create", func(ctx context.Context) error {
		_, err := s.db.NamedExecContext(ctx,
			`INSERT INTO quotes (`+quoteColumns+`)
			VALUES (:id, :product_type, :age, :coverage_amount, :term_years, :smoker,
				:monthly_premium, :annual_premium, :created_at, :expires_at)`, q)
		return err
	})
	if err != nil {
		return fmt.Errorf("create quote: %w", err)
	}
	return nil
}

// Get returns the quote with the given id, or nil. Expiry is not checked.
func (s *QuoteStore) Get(ctx context.Context, id string) (*domain.Quote, error) {
	var q domain.Quote

	err := s.inst.Run(ctx, "quotes.get", func(ctx context.Context) error {
		return s.db.GetContext(ctx, &q, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
	})
	if database.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}

	return &q, nil
}

// DeleteExpired removes quotes that expired at or before now and returns
// how many were removed.
func (s *QuoteStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64

	err := s.inst.Run(ctx, "quotes.delete_expired", func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM quotes
			WHERE expires_at <= $1
			AND NOT EXISTS (SELECT 1 FROM enrollments e WHERE e.quote_id = quotes.id)`, now)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete expired quotes: %w", err)
	}

	return removed, nil
}
