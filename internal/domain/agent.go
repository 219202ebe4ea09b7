package domain

import (
	"strings"
	"time"

	"github.com/vyrodovalexey/avainsure/internal/config"
)

// Agent is an insurance agent record synchronized from an upstream system.
type Agent struct {
	ID            string    `db:"id" json:"id"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Email         string    `db:"email" json:"email"`
	Phone         string    `db:"phone" json:"phone"`
	LicenseNumber string    `db:"license_number" json:"license_number"`
	AgencyName    string    `db:"agency_name" json:"agency_name"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ApplyDefaults fills optional fields left empty by the caller.
func (a *Agent) ApplyDefaults() {
	if strings.TrimSpace(a.AgencyName) == "" {
		a.AgencyName = config.DefaultAgencyName
	}
}
