package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avainsure/internal/config"
	"github.com/vyrodovalexey/avainsure/internal/middleware"
	"github.com/vyrodovalexey/avainsure/internal/service"
	"github.com/vyrodovalexey/avainsure/internal/util"
)

// agentRole is the token role of an agent acting for an applicant.
const agentRole = "agent"

// CreateEnrollmentRequest is the body of POST /enrollments.
type CreateEnrollmentRequest struct {
	QuoteID        string  `json:"quote_id" binding:"required"`
	AgentID        *string `json:"agent_id" binding:"omitempty,max=64"`
	ApplicantName  string  `json:"applicant_name" binding:"required,max=200"`
	ApplicantEmail string  `json:"applicant_email" binding:"required,email"`
}

// ContributionRequest is the body of POST /enrollments/:id/contributions.
type ContributionRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// EnrollmentHandler serves enrollments and their contributions.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler creates the enrollment handler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// RegisterRoutes mounts the enrollment routes on rg.
func (h *EnrollmentHandler) RegisterRoutes(rg *gin.RouterGroup, mw *Middleware) {
	enrollments := rg.Group("/enrollments", mw.Auth())
	enrollments.POST("", h.Create)
	enrollments.GET("/:id", h.Get)
	enrollments.POST("/:id/contributions", mw.RateLimit(config.ProfileContribution), h.AddContribution)
	enrollments.GET("/:id/contributions", h.ListContributions)
}

// Create handles POST /enrollments. An agent token enrolls on behalf of
// its subject and may not name another agent.
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req CreateEnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}

	if claims := middleware.GetClaims(c); claims != nil && claims.Role == agentRole {
		if req.AgentID != nil && *req.AgentID != claims.Subject {
			abort(c, util.NewForbiddenError("Agents may only enroll on their own behalf"))
			return
		}
		subject := claims.Subject
		req.AgentID = &subject
	}

	enrollment, err := h.enrollments.Create(c.Request.Context(), service.CreateEnrollmentInput{
		QuoteID:        req.QuoteID,
		AgentID:        req.AgentID,
		ApplicantName:  req.ApplicantName,
		ApplicantEmail: req.ApplicantEmail,
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "enrollment": enrollment})
}

// Get handles GET /enrollments/:id.
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.enrollments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "enrollment": enrollment})
}

// AddContribution handles POST /enrollments/:id/contributions.
func (h *EnrollmentHandler) AddContribution(c *gin.Context) {
	var req ContributionRequest
	if !bindJSON(c, &req) {
		return
	}

	contribution, err := h.enrollments.AddContribution(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "contribution": contribution})
}

// ListContributions handles GET /enrollments/:id/contributions.
func (h *EnrollmentHandler) ListContributions(c *gin.Context) {
	contributions, err := h.enrollments.ListContributions(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "contributions": contributions})
}
