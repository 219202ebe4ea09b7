package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avainsure/internal/domain"
	"github.com/vyrodovalexey/avainsure/internal/service"
)

// SyncAgentRequest is the body of POST /agents/sync.
type SyncAgentRequest struct {
	ID            string `json:"id" binding:"required,max=64"`
	FirstName     string `json:"first_name" binding:"required,max=100"`
	LastName      string `json:"last_name" binding:"required,max=100"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone" binding:"required,max=32"`
	LicenseNumber string `json:"license_number" binding:"required,max=64"`
	AgencyName    string `json:"agency_name" binding:"max=200"`
}

func (r SyncAgentRequest) toDomain() domain.Agent {
	return domain.Agent{
		ID:            r.ID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Phone:         r.Phone,
		LicenseNumber: r.LicenseNumber,
		AgencyName:    r.AgencyName,
	}
}

// AgentHandler serves agent synchronization.
type AgentHandler struct {
	agents *service.AgentService
}

// NewAgentHandler creates the agent handler.
func NewAgentHandler(agents *service.AgentService) *AgentHandler {
	return &AgentHandler{agents: agents}
}

// RegisterRoutes mounts the agent routes on rg.
func (h *AgentHandler) RegisterRoutes(rg *gin.RouterGroup, mw *Middleware) {
	rg.POST("/agents/sync", mw.Auth(), h.Sync)
}

// Sync handles POST /agents/sync.
func (h *AgentHandler) Sync(c *gin.Context) {
	var req SyncAgentRequest
	if !bindJSON(c, &req) {
		return
	}

	agent, err := h.agents.Sync(c.Request.Context(), req.toDomain())
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Agent synced successfully",
		"agent":   agent,
	})
}
