package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service identifies one of the deployable services.
type Service string

// Known services.
const (
	ServicePricing    Service = "pricing-service"
	ServiceEnrollment Service = "enrollment-service"
	ServiceAgentSync  Service = "agent-sync-service"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Rate limit profile names.
const (
	ProfileDefault      = "default"
	ProfileQuote        = "quote"
	ProfileContribution = "contribution"
)

// Default values.
const (
	DefaultHost               = "0.0.0.0"
	DefaultReadTimeout        = 30 * time.Second
	DefaultWriteTimeout       = 30 * time.Second
	DefaultIdleTimeout        = 120 * time.Second
	DefaultShutdownTimeout    = 30 * time.Second
	DefaultMaxBodySize        = 1 << 20
	DefaultDBPort             = 5432
	DefaultDBMaxOpenConns     = 20
	DefaultDBMaxIdleConns     = 5
	DefaultDBConnMaxLifetime  = 30 * time.Minute
	DefaultRedisPort          = 6379
	DefaultRedisDialTimeout   = 5 * time.Second
	DefaultConnectRetries     = 5
	DefaultRedisKeyPrefix     = "insure:"
	DefaultRateLimitAlgorithm = "fixed_window"
	DefaultRateLimitStore     = "memory"
	DefaultQuoteTTL           = 30 * time.Minute
	DefaultQuotePurgeSchedule = "@every 10m"
	DefaultMetricsPath        = "/metrics"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultAgencyName         = "Default Agency"
)

// defaultPorts maps each service to its listen port.
var defaultPorts = map[Service]int{
	ServicePricing:    3001,
	ServiceEnrollment: 3002,
	ServiceAgentSync:  3003,
}

// Config is the complete, immutable service configuration.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Features  FeatureFlags    `yaml:"features"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Quotes    QuoteConfig     `yaml:"quotes"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// AppConfig holds process identity settings.
type AppConfig struct {
	Name    string `yaml:"name" env:"SERVICE_NAME"`
	Env     string `yaml:"env" env:"APP_ENV"`
	Version string `yaml:"version" env:"SERVICE_VERSION"`
}

// IsDevelopment reports whether the process runs in development mode.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == EnvDevelopment
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"readTimeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idleTimeout" env:"SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	MaxBodySize     int64         `yaml:"maxBodySize" env:"SERVER_MAX_BODY_SIZE"`

	// TrustedProxies lists the CIDRs or addresses whose X-Forwarded-For
	// header is honored. Empty trusts no proxy.
	TrustedProxies []string `yaml:"trustedProxies" env:"TRUSTED_PROXIES"`
}

// Address returns the host:port listen address.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string        `yaml:"url" env:"DATABASE_URL"`
	Host            string        `yaml:"host" env:"DB_HOST"`
	Port            int           `yaml:"port" env:"DB_PORT"`
	Name            string        `yaml:"name" env:"DB_NAME"`
	User            string        `yaml:"user" env:"DB_USER"`
	Password        string        `yaml:"password" env:"DB_PASSWORD"`
	SSLMode         string        `yaml:"sslMode" env:"DB_SSLMODE"`
	MaxOpenConns    int           `yaml:"maxOpenConns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"maxIdleConns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" env:"DB_CONN_MAX_LIFETIME"`
	ConnectRetries  int           `yaml:"connectRetries" env:"DB_CONNECT_RETRIES"`
}

// DSN returns the lib/pq connection string. URL takes precedence when set.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Enabled        bool          `yaml:"enabled" env:"REDIS_ENABLED"`
	Host           string        `yaml:"host" env:"REDIS_HOST"`
	Port           int           `yaml:"port" env:"REDIS_PORT"`
	Password       string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB             int           `yaml:"db" env:"REDIS_DB"`
	KeyPrefix      string        `yaml:"keyPrefix" env:"REDIS_KEY_PREFIX"`
	DialTimeout    time.Duration `yaml:"dialTimeout" env:"REDIS_DIAL_TIMEOUT"`
	ConnectRetries int           `yaml:"connectRetries" env:"REDIS_CONNECT_RETRIES"`
}

// Addr returns the host:port address of the Redis server.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// FeatureFlags gates product type availability.
type FeatureFlags struct {
	TermLife  bool `yaml:"termLife" env:"ENABLE_TERM_LIFE"`
	WholeLife bool `yaml:"wholeLife" env:"ENABLE_WHOLE_LIFE"`
	Annuity   bool `yaml:"annuity" env:"ENABLE_ANNUITY"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled" env:"AUTH_ENABLED"`
	JWTSecret string `yaml:"jwtSecret" env:"JWT_SECRET"`
	Issuer    string `yaml:"issuer" env:"JWT_ISSUER"`
}

// RateLimitConfig holds the request throttling profiles.
type RateLimitConfig struct {
	Enabled            bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
	Algorithm          string        `yaml:"algorithm" env:"RATE_LIMIT_ALGORITHM"`
	Store              string        `yaml:"store" env:"RATE_LIMIT_STORE"`
	DefaultMax         int           `yaml:"defaultMax" env:"RATE_LIMIT_MAX"`
	DefaultWindow      time.Duration `yaml:"defaultWindow" env:"RATE_LIMIT_WINDOW"`
	QuoteMax           int           `yaml:"quoteMax" env:"QUOTE_RATE_LIMIT_MAX"`
	QuoteWindow        time.Duration `yaml:"quoteWindow" env:"QUOTE_RATE_LIMIT_WINDOW"`
	ContributionMax    int           `yaml:"contributionMax" env:"CONTRIBUTION_RATE_LIMIT_MAX"`
	ContributionWindow time.Duration `yaml:"contributionWindow" env:"CONTRIBUTION_RATE_LIMIT_WINDOW"`
}

// ProfileConfig is the threshold of a single named limiter profile.
type ProfileConfig struct {
	Name   string
	Max    int
	Window time.Duration
}

// Profile returns the settings of the named profile. Unknown names fall
// back to the default profile.
func (r RateLimitConfig) Profile(name string) ProfileConfig {
	switch name {
	case ProfileQuote:
		return ProfileConfig{Name: ProfileQuote, Max: r.QuoteMax, Window: r.QuoteWindow}
	case ProfileContribution:
		return ProfileConfig{Name: ProfileContribution, Max: r.ContributionMax, Window: r.ContributionWindow}
	default:
		return ProfileConfig{Name: ProfileDefault, Max: r.DefaultMax, Window: r.DefaultWindow}
	}
}

// Profiles returns every configured profile.
func (r RateLimitConfig) Profiles() []ProfileConfig {
	return []ProfileConfig{
		r.Profile(ProfileDefault),
		r.Profile(ProfileQuote),
		r.Profile(ProfileContribution),
	}
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Path    string `yaml:"path" env:"METRICS_PATH"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// QuoteConfig holds quote lifecycle settings.
type QuoteConfig struct {
	TTL           time.Duration `yaml:"ttl" env:"QUOTE_TTL"`
	PurgeSchedule string        `yaml:"purgeSchedule" env:"QUOTE_PURGE_SCHEDULE"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" env:"TRACING_ENABLED"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SamplingRate float64 `yaml:"samplingRate" env:"TRACING_SAMPLING_RATE"`
}

// DefaultConfig returns the configuration used before any source is
// applied.
func DefaultConfig(service Service) *Config {
	port, ok := defaultPorts[service]
	if !ok {
		port = 3000
	}

	return &Config{
		App: AppConfig{
			Name:    string(service),
			Env:     EnvProduction,
			Version: "1.0.0",
		},
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            port,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxBodySize:     DefaultMaxBodySize,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            DefaultDBPort,
			Name:            "insurance",
			User:            "postgres",
			SSLMode:         "disable",
			MaxOpenConns:    DefaultDBMaxOpenConns,
			MaxIdleConns:    DefaultDBMaxIdleConns,
			ConnMaxLifetime: DefaultDBConnMaxLifetime,
			ConnectRetries:  DefaultConnectRetries,
		},
		Redis: RedisConfig{
			Enabled:        false,
			Host:           "localhost",
			Port:           DefaultRedisPort,
			KeyPrefix:      DefaultRedisKeyPrefix,
			DialTimeout:    DefaultRedisDialTimeout,
			ConnectRetries: DefaultConnectRetries,
		},
		Features: FeatureFlags{
			TermLife:  true,
			WholeLife: true,
			Annuity:   true,
		},
		RateLimit: RateLimitConfig{
			Enabled:            true,
			Algorithm:          DefaultRateLimitAlgorithm,
			Store:              DefaultRateLimitStore,
			DefaultMax:         100,
			DefaultWindow:      15 * time.Minute,
			QuoteMax:           20,
			QuoteWindow:        time.Minute,
			ContributionMax:    10,
			ContributionWindow: time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Quotes: QuoteConfig{
			TTL:           DefaultQuoteTTL,
			PurgeSchedule: DefaultQuotePurgeSchedule,
		},
		Tracing: TracingConfig{
			SamplingRate: 1.0,
		},
	}
}
