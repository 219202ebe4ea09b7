package service

import (
	"context"

	"github.com/vyrodovalexey/avainsure/internal/database"
	"github.com/vyrodovalexey/avainsure/internal/domain"
	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/util"
)

// AgentService synchronizes agent records from upstream systems.
type AgentService struct {
	agents AgentRepository
	logger observability.Logger
}

// NewAgentService creates an agent service.
func NewAgentService(agents AgentRepository, logger observability.Logger) *AgentService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &AgentService{agents: agents, logger: logger}
}

// Sync inserts the agent or replaces the stored record with the same id.
// Repeating a sync with the same payload leaves a single row.
func (s *AgentService) Sync(ctx context.Context, agent domain.Agent) (*domain.Agent, error) {
	agent.ApplyDefaults()

	stored, err := s.agents.Upsert(ctx, &agent)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, util.NewConflictError("Agent with this license number already exists", err)
		}
		s.logger.WithContext(ctx).Error("failed to sync agent",
			observability.String("agent_id", agent.ID),
			observability.Error(err),
		)
		return nil, util.NewInternalError("Failed to sync agent", err)
	}

	s.logger.WithContext(ctx).Info("agent synced", observability.String("agent_id", stored.ID))

	return stored, nil
}
