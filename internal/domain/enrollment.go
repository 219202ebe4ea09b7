package domain

import "time"

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

// Enrollment statuses.
const (
	EnrollmentPending EnrollmentStatus = "pending"
)

// Enrollment binds an applicant to an accepted quote.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	QuoteID        string           `db:"quote_id" json:"quote_id"`
	ProductType    ProductType      `db:"product_type" json:"product_type"`
	AgentID        *string          `db:"agent_id" json:"agent_id,omitempty"`
	ApplicantName  string           `db:"applicant_name" json:"applicant_name"`
	ApplicantEmail string           `db:"applicant_email" json:"applicant_email"`
	MonthlyPremium float64          `db:"monthly_premium" json:"monthly_premium"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// Contribution is a payment made against an enrollment.
type Contribution struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	Amount       float64   `db:"amount" json:"amount"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
