package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vyrodovalexey/avainsure/internal/database"
	"github.com/vyrodovalexey/avainsure/internal/domain"
)

const agentColumns = `id, first_name, last_name, email, phone, license_number, agency_name, created_at, updated_at`

// upsertAgentQuery inserts an agent or updates the existing row with the
// same id. A second agent claiming an existing license number violates
// the unique constraint on license_number.
const upsertAgentQuery = `INSERT INTO agents (id, first_name, last_name, email, phone, license_number, agency_name)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	email = EXCLUDED.email,
	phone = EXCLUDED.phone,
	license_number = EXCLUDED.license_number,
	agency_name = EXCLUDED.agency_name,
	updated_at = NOW()
RETURNING ` + agentColumns

// AgentStore persists agent records.
type AgentStore struct {
	db   *sqlx.DB
	inst database.Instrumentation
}

// NewAgentStore creates an agent store.
func NewAgentStore(db *sqlx.DB, inst database.Instrumentation) *AgentStore {
	return &AgentStore{db: db, inst: inst}
}

// Upsert inserts a or updates the row with a's id and returns the stored
// row.
func (s *AgentStore) Upsert(ctx context.Context, a *domain.Agent) (*domain.Agent, error) {
	var out domain.Agent

	err := s.inst.Run(ctx, "agents.upsert", func(ctx context.Context) error {
		return s.db.GetContext(ctx, &out, upsertAgentQuery,
			a.ID, a.FirstName, a.LastName, a.Email, a.Phone, a.LicenseNumber, a.AgencyName)
	})
	if err != nil {
		return nil, fmt.Errorf("upsert agent %s: %w", a.ID, err)
	}

	return &out, nil
}

// Get returns the agent with the given id, or nil.
func (s *AgentStore) Get(ctx context.Context, id string) (*domain.Agent, error) {
	var a domain.Agent

	err := s.inst.Run(ctx, "agents.get", func(ctx context.Context) error {
		return s.db.GetContext(ctx, &a, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	})
	if database.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}

	return &a, nil
}
