// Package service implements the business operations behind the HTTP
// routes.
//
// Services never leak driver errors to callers. A failing store call is
// logged with its cause and replaced by a non-operational AppError with a
// generic message; unique and foreign key violations become client
// errors.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/avainsure/internal/domain"
)

// ProductRepository reads products.
type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByType(ctx context.Context, productType domain.ProductType) (*domain.Product, error)
}

// QuoteRepository persists quotes.
type QuoteRepository interface {
	Create(ctx context.Context, q *domain.Quote) error
	Get(ctx context.Context, id string) (*domain.Quote, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AgentRepository persists agents.
type AgentRepository interface {
	Upsert(ctx context.Context, a *domain.Agent) (*domain.Agent, error)
}

// EnrollmentRepository persists enrollments and contributions.
type EnrollmentRepository interface {
	Create(ctx context.Context, e *domain.Enrollment) error
	Get(ctx context.Context, id string) (*domain.Enrollment, error)
	AddContribution(ctx context.Context, c *domain.Contribution) error
	ListContributions(ctx context.Context, enrollmentID string) ([]domain.Contribution, error)
}

// Clock returns the current time.
type Clock func() time.Time

// IDGenerator returns a new unique identifier.
type IDGenerator func() string

func defaultClock() time.Time {
	return time.Now().UTC()
}

func defaultID() string {
	return uuid.NewString()
}

// validID reports whether id is a well-formed UUID. Malformed ids cannot
// match a row and are rejected before reaching the database.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
