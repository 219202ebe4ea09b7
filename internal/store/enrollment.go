package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vyrodovalexey/avainsure/internal/database"
	"github.com/vyrodovalexey/avainsure/internal/domain"
)

const enrollmentColumns = `id, quote_id, product_type, agent_id, applicant_name, applicant_email,
	monthly_premium, status, created_at`

const contributionColumns = `id, enrollment_id, amount, created_at`

// EnrollmentStore persists enrollments and their contributions.
type EnrollmentStore struct {
	db   *sqlx.DB
	inst database.Instrumentation
}

// NewEnrollmentStore creates an enrollment store.
func NewEnrollmentStore(db *sqlx.DB, inst database.Instrumentation) *EnrollmentStore {
	return &EnrollmentStore{db: db, inst: inst}
}

// Create inserts e.
func (s *EnrollmentStore) Create(ctx context.Context, e *domain.Enrollment) error {
	err := s.inst.Run(ctx, "enrollments.create", func(ctx context.Context) error {
		_, err := s.db.NamedExecContext(ctx,
			`INSERT INTO enrollments (`+enrollmentColumns+`)
			VALUES (:id, :quote_id, :product_type, :agent_id, :applicant_name, :applicant_email,
				:monthly_premium, :status, :created_at)`, e)
		return err
	})
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Get returns the enrollment with the given id, or nil.
func (s *EnrollmentStore) Get(ctx context.Context, id string) (*domain.Enrollment, error) {
	var e domain.Enrollment

	err := s.inst.Run(ctx, "enrollments.get", func(ctx context.Context) error {
		return s.db.GetContext(ctx, &e, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id)
	})
	if database.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}

	return &e, nil
}

// AddContribution inserts c.
func (s *EnrollmentStore) AddContribution(ctx context.Context, c *domain.Contribution) error {
	err := s.inst.Run(ctx, "contributions.create", func(ctx context.Context) error {
		_, err := s.db.NamedExecContext(ctx,
			`INSERT INTO contributions (`+contributionColumns+`)
			VALUES (:id, :enrollment_id, :amount, :created_at)`, c)
		return err
	})
	if err != nil {
		return fmt.Errorf("add contribution: %w", err)
	}
	return nil
}

// ListContributions returns the contributions of an enrollment, oldest
// first.
func (s *EnrollmentStore) ListContributions(ctx context.Context, enrollmentID string) ([]domain.Contribution, error) {
	contributions := []domain.Contribution{}

	err := s.inst.Run(ctx, "contributions.list", func(ctx context.Context) error {
		return s.db.SelectContext(ctx, &contributions,
			`SELECT `+contributionColumns+` FROM contributions WHERE enrollment_id = $1 ORDER BY created_at`,
			enrollmentID)
	})
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}

	return contributions, nil
}
