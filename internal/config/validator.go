package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/vyrodovalexey/avainsure/internal/util"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates service configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a service configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration. The returned error wraps
// ValidationErrors in a util.ConfigError.
func (v *Validator) Validate(cfg *Config) error {
	v.errors = make(ValidationErrors, 0)

	if cfg == nil {
		v.addError("", "configuration is nil")
		return util.NewConfigErrorWithCause("", "invalid configuration", v.errors)
	}

	v.validateApp(&cfg.App)
	v.validateServer(&cfg.Server)
	v.validateDatabase(&cfg.Database)
	v.validateRedis(&cfg.Redis)
	v.validateAuth(&cfg.Auth)
	v.validateRateLimit(&cfg.RateLimit)
	v.validateMetrics(&cfg.Metrics)
	v.validateLogging(&cfg.Logging)
	v.validateQuotes(&cfg.Quotes)
	v.validateTracing(&cfg.Tracing)

	if cfg.RateLimit.Enabled && cfg.RateLimit.Store == "redis" && !cfg.Redis.Enabled {
		v.addError("rateLimit.store", "redis store requires redis to be enabled")
	}

	if v.errors.HasErrors() {
		return util.NewConfigErrorWithCause("", "invalid configuration", v.errors)
	}
	return nil
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateApp(app *AppConfig) {
	if app.Name == "" {
		v.addError("app.name", "service name is required")
	}
	switch app.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		v.addError("app.env", fmt.Sprintf("unsupported environment %q", app.Env))
	}
}

func (v *Validator) validateServer(s *ServerConfig) {
	if s.Port < 1 || s.Port > 65535 {
		v.addError("server.port", fmt.Sprintf("port must be between 1 and 65535, got %d", s.Port))
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.IdleTimeout < 0 {
		v.addError("server", "timeouts must not be negative")
	}
	if s.ShutdownTimeout <= 0 {
		v.addError("server.shutdownTimeout", "shutdown timeout must be positive")
	}
	if s.MaxBodySize <= 0 {
		v.addError("server.maxBodySize", "max body size must be positive")
	}
	for _, proxy := range s.TrustedProxies {
		if !validProxy(strings.TrimSpace(proxy)) {
			v.addError("server.trustedProxies", fmt.Sprintf("invalid proxy address or CIDR %q", proxy))
		}
	}
}

func validProxy(proxy string) bool {
	if proxy == "" {
		return true
	}
	if _, err := netip.ParsePrefix(proxy); err == nil {
		return true
	}
	_, err := netip.ParseAddr(proxy)
	return err == nil
}

func (v *Validator) validateDatabase(d *DatabaseConfig) {
	if d.ConnectRetries < 0 {
		v.addError("database.connectRetries", "connect retries must not be negative")
	}
	if d.URL != "" {
		return
	}
	if d.Host == "" {
		v.addError("database.host", "host is required")
	}
	if d.Port < 1 || d.Port > 65535 {
		v.addError("database.port", fmt.Sprintf("port must be between 1 and 65535, got %d", d.Port))
	}
	if d.Name == "" {
		v.addError("database.name", "database name is required")
	}
	if d.MaxOpenConns < 0 || d.MaxIdleConns < 0 {
		v.addError("database", "connection pool sizes must not be negative")
	}
}

func (v *Validator) validateRedis(r *RedisConfig) {
	if !r.Enabled {
		return
	}
	if r.Host == "" {
		v.addError("redis.host", "host is required when redis is enabled")
	}
	if r.Port < 1 || r.Port > 65535 {
		v.addError("redis.port", fmt.Sprintf("port must be between 1 and 65535, got %d", r.Port))
	}
	if r.DB < 0 {
		v.addError("redis.db", "db must not be negative")
	}
	if r.ConnectRetries < 0 {
		v.addError("redis.connectRetries", "connect retries must not be negative")
	}
}

func (v *Validator) validateAuth(a *AuthConfig) {
	if a.Enabled && a.JWTSecret == "" {
		v.addError("auth.jwtSecret", "JWT secret is required when auth is enabled")
	}
}

func (v *Validator) validateRateLimit(r *RateLimitConfig) {
	switch r.Algorithm {
	case "fixed_window", "token_bucket":
	default:
		v.addError("rateLimit.algorithm", fmt.Sprintf("unsupported algorithm %q", r.Algorithm))
	}
	switch r.Store {
	case "memory", "redis":
	default:
		v.addError("rateLimit.store", fmt.Sprintf("unsupported store %q", r.Store))
	}
	if r.Algorithm == "token_bucket" && r.Store == "redis" {
		v.addError("rateLimit.store", "token_bucket keeps buckets in memory and cannot use the redis store")
	}

	for _, p := range r.Profiles() {
		if p.Max <= 0 {
			v.addError("rateLimit."+p.Name, "max must be positive")
		}
		if p.Window <= 0 {
			v.addError("rateLimit."+p.Name, "window must be positive")
		}
	}
}

func (v *Validator) validateMetrics(m *MetricsConfig) {
	if m.Enabled && !strings.HasPrefix(m.Path, "/") {
		v.addError("metrics.path", "path must start with /")
	}
}

func (v *Validator) validateLogging(l *LoggingConfig) {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		v.addError("logging.level", fmt.Sprintf("unsupported level %q", l.Level))
	}
	switch l.Format {
	case "json", "console":
	default:
		v.addError("logging.format", fmt.Sprintf("unsupported format %q", l.Format))
	}
}

func (v *Validator) validateQuotes(q *QuoteConfig) {
	if q.TTL <= 0 {
		v.addError("quotes.ttl", "quote TTL must be positive")
	}
	if q.PurgeSchedule == "" {
		return
	}
	if _, err := cron.ParseStandard(q.PurgeSchedule); err != nil {
		v.addError("quotes.purgeSchedule", fmt.Sprintf("invalid schedule: %v", err))
	}
}

func (v *Validator) validateTracing(t *TracingConfig) {
	if t.SamplingRate < 0 || t.SamplingRate > 1 {
		v.addError("tracing.samplingRate", "sampling rate must be between 0 and 1")
	}
	if t.Enabled && t.OTLPEndpoint == "" {
		v.addError("tracing.otlpEndpoint", "OTLP endpoint is required when tracing is enabled")
	}
}
