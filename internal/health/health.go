package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avainsure/internal/observability"
)

// DefaultCheckTimeout bounds a full deep check.
const DefaultCheckTimeout = 5 * time.Second

// Status represents the health status.
type Status string

const (
	// StatusHealthy indicates the service is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates a critical dependency is down.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates a non-critical dependency is down.
	StatusDegraded Status = "degraded"
)

// LivenessResponse is the body of the liveness endpoint.
type LivenessResponse struct {
	Status    Status    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckResult is the outcome of a single dependency check.
type CheckResult struct {
	Status    Status         `json:"status"`
	Type      DependencyType `json:"type"`
	Critical  bool           `json:"critical"`
	LatencyMS float64        `json:"latency_ms"`
	Error     string         `json:"error,omitempty"`
}

// DeepResponse is the body of the deep health endpoint.
type DeepResponse struct {
	Status    Status                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version,omitempty"`
	Uptime    string                 `json:"uptime"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Checker runs the registered dependency checks.
type Checker struct {
	service   string
	version   string
	startTime time.Time
	timeout   time.Duration
	logger    observability.Logger
	metrics   *Metrics

	mu     sync.RWMutex
	checks []*DependencyCheck
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for failed checks.
func WithLogger(logger observability.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithMetrics records check outcomes.
func WithMetrics(m *Metrics) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}

// WithTimeout bounds a full deep check.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewChecker creates a checker with no dependencies.
func NewChecker(service, version string, opts ...Option) *Checker {
	c := &Checker{
		service:   service,
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultCheckTimeout,
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a dependency check.
func (c *Checker) Register(check *DependencyCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check)
}

// Liveness reports that the process is serving.
func (c *Checker) Liveness() LivenessResponse {
	return LivenessResponse{
		Status:    StatusHealthy,
		Service:   c.service,
		Version:   c.version,
		Uptime:    c.uptime(),
		Timestamp: time.Now().UTC(),
	}
}

// Deep runs every dependency check concurrently.
func (c *Checker) Deep(ctx context.Context) DeepResponse {
	c.mu.RLock()
	checks := make([]*DependencyCheck, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.run(ctx, check)
		}()
	}
	wg.Wait()

	response := DeepResponse{
		Status:    StatusHealthy,
		Service:   c.service,
		Version:   c.version,
		Uptime:    c.uptime(),
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}
	for i, check := range checks {
		result := results[i]
		response.Checks[check.Name()] = result

		switch {
		case result.Status == StatusHealthy:
		case result.Critical:
			response.Status = StatusUnhealthy
		case response.Status != StatusUnhealthy:
			response.Status = StatusDegraded
		}
	}

	c.metrics.recordOverall(response.Status)
	return response
}

func (c *Checker) run(ctx context.Context, check *DependencyCheck) CheckResult {
	latency, err := check.Check(ctx)
	c.metrics.recordCheck(check.Name(), err == nil, latency)

	result := CheckResult{
		Status:    StatusHealthy,
		Type:      check.Type(),
		Critical:  check.IsCritical(),
		LatencyMS: float64(latency.Microseconds()) / 1000,
	}
	if err != nil {
		c.logger.Warn("health check failed",
			observability.String("check", check.Name()),
			observability.Bool("critical", check.IsCritical()),
			observability.Error(err),
		)
		result.Status = StatusUnhealthy
		result.Error = "unreachable"
	}
	return result
}

func (c *Checker) uptime() string {
	return time.Since(c.startTime).Round(time.Second).String()
}

// LivenessHandler serves the liveness endpoint.
func (c *Checker) LivenessHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, c.Liveness())
	}
}

// DeepHandler serves the deep health endpoint. It responds 503 when a
// critical dependency is down.
func (c *Checker) DeepHandler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		response := c.Deep(ctx.Request.Context())

		status := http.StatusOK
		if response.Status == StatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		ctx.JSON(status, response)
	}
}

// RegisterRoutes mounts /health and /health/deep on rg.
func (c *Checker) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/health", c.LivenessHandler())
	rg.GET("/health/deep", c.DeepHandler())
}
