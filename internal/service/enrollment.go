package service

import (
	"context"
	"strings"

	"github.com/vyrodovalexey/avainsure/internal/database"
	"github.com/vyrodovalexey/avainsure/internal/domain"
	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/util"
)

// CreateEnrollmentInput holds the fields of a new enrollment.
type CreateEnrollmentInput struct {
	QuoteID        string
	AgentID        *string
	ApplicantName  string
	ApplicantEmail string
}

// EnrollmentService creates enrollments from quotes and records
// contributions against them.
type EnrollmentService struct {
	enrollments EnrollmentRepository
	quotes      QuoteRepository
	products    *ProductService
	logger      observability.Logger
	now         Clock
	newID       IDGenerator
}

// EnrollmentOption configures an EnrollmentService.
type EnrollmentOption func(*EnrollmentService)

// WithEnrollmentClock overrides the time source.
func WithEnrollmentClock(now Clock) EnrollmentOption {
	return func(s *EnrollmentService) {
		s.now = now
	}
}

// WithEnrollmentIDGenerator overrides id generation for enrollments and
// contributions.
func WithEnrollmentIDGenerator(gen IDGenerator) EnrollmentOption {
	return func(s *EnrollmentService) {
		s.newID = gen
	}
}

// NewEnrollmentService creates an enrollment service.
func NewEnrollmentService(
	enrollments EnrollmentRepository,
	quotes QuoteRepository,
	products *ProductService,
	logger observability.Logger,
	opts ...EnrollmentOption,
) *EnrollmentService {
	if logger == nil {
		logger = observability.NopLogger()
	}

	s := &EnrollmentService{
		enrollments: enrollments,
		quotes:      quotes,
		products:    products,
		logger:      logger,
		now:         defaultClock,
		newID:       defaultID,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create enrolls an applicant in the product of an unexpired quote.
func (s *EnrollmentService) Create(ctx context.Context, in CreateEnrollmentInput) (*domain.Enrollment, error) {
	if !validID(in.QuoteID) {
		return nil, util.NewNotFoundError("Quote")
	}

	quote, err := s.quotes.Get(ctx, in.QuoteID)
	if err != nil {
		s.logger.WithContext(ctx).Error("failed to fetch quote for enrollment",
			observability.String("quote_id", in.QuoteID),
			observability.Error(err),
		)
		return nil, util.NewInternalError("Failed to create enrollment", err)
	}
	if quote == nil {
		return nil, util.NewNotFoundError("Quote")
	}

	now := s.now()
	if quote.Expired(now) {
		return nil, util.NewValidationError("Quote has expired",
			util.FieldError{Field: "quote_id", Message: "quote has expired"})
	}

	if _, err := s.products.GetProduct(ctx, string(quote.ProductType)); err != nil {
		if util.IsClientError(err) {
			return nil, util.NewValidationError("Product is not available",
				util.FieldError{Field: "quote_id", Message: "product is not available"})
		}
		return nil, err
	}

	e := &domain.Enrollment{
		ID:             s.newID(),
		QuoteID:        quote.ID,
		ProductType:    quote.ProductType,
		AgentID:        normalizeOptional(in.AgentID),
		ApplicantName:  in.ApplicantName,
		ApplicantEmail: in.ApplicantEmail,
		MonthlyPremium: quote.MonthlyPremium,
		Status:         domain.EnrollmentPending,
		CreatedAt:      now,
	}

	if err := s.enrollments.Create(ctx, e); err != nil {
		switch {
		case database.IsForeignKeyViolation(err):
			return nil, util.NewValidationError("Unknown agent",
				util.FieldError{Field: "agent_id", Message: "agent does not exist"})
		case database.IsUniqueViolation(err):
			return nil, util.NewConflictError("Enrollment already exists", err)
		}
		s.logger.WithContext(ctx).Error("failed to create enrollment", observability.Error(err))
		return nil, util.NewInternalError("Failed to create enrollment", err)
	}

	return e, nil
}

// Get returns the enrollment with the given id.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*domain.Enrollment, error) {
	if !validID(id) {
		return nil, util.NewNotFoundError("Enrollment")
	}

	e, err := s.enrollments.Get(ctx, id)
	if err != nil {
		s.logger.WithContext(ctx).Error("failed to fetch enrollment",
			observability.String("enrollment_id", id),
			observability.Error(err),
		)
		return nil, util.NewInternalError("Failed to fetch enrollment", err)
	}
	if e == nil {
		return nil, util.NewNotFoundError("Enrollment")
	}

	return e, nil
}

// AddContribution records a payment against an existing enrollment.
func (s *EnrollmentService) AddContribution(
	ctx context.Context,
	enrollmentID string,
	amount float64,
) (*domain.Contribution, error) {
	if amount <= 0 {
		return nil, util.NewValidationError("Validation failed",
			util.FieldError{Field: "amount", Message: "must be greater than 0"})
	}

	if _, err := s.Get(ctx, enrollmentID); err != nil {
		return nil, err
	}

	c := &domain.Contribution{
		ID:           s.newID(),
		EnrollmentID: enrollmentID,
		Amount:       amount,
		CreatedAt:    s.now(),
	}

	if err := s.enrollments.AddContribution(ctx, c); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, util.NewNotFoundError("Enrollment")
		}
		s.logger.WithContext(ctx).Error("failed to add contribution",
			observability.String("enrollment_id", enrollmentID),
			observability.Error(err),
		)
		return nil, util.NewInternalError("Failed to add contribution", err)
	}

	return c, nil
}

// ListContributions returns the contributions of an existing enrollment.
func (s *EnrollmentService) ListContributions(ctx context.Context, enrollmentID string) ([]domain.Contribution, error) {
	if _, err := s.Get(ctx, enrollmentID); err != nil {
		return nil, err
	}

	list, err := s.enrollments.ListContributions(ctx, enrollmentID)
	if err != nil {
		s.logger.WithContext(ctx).Error("failed to list contributions",
			observability.String("enrollment_id", enrollmentID),
			observability.Error(err),
		)
		return nil, util.NewInternalError("Failed to fetch contributions", err)
	}

	return list, nil
}

func normalizeOptional(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}
