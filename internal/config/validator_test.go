package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avainsure/internal/util"
)

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantPaths []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:      "bad environment",
			mutate:    func(cfg *Config) { cfg.App.Env = "staging" },
			wantPaths: []string{"app.env"},
		},
		{
			name:      "port out of range",
			mutate:    func(cfg *Config) { cfg.Server.Port = 70000 },
			wantPaths: []string{"server.port"},
		},
		{
			name:   "trusted proxies",
			mutate: func(cfg *Config) { cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.1", "::1"} },
		},
		{
			name:      "invalid trusted proxy",
			mutate:    func(cfg *Config) { cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "proxy.local"} },
			wantPaths: []string{"server.trustedProxies"},
		},
		{
			name: "database url skips field checks",
			mutate: func(cfg *Config) {
				cfg.Database.URL = "postgres://localhost/insurance"
				cfg.Database.Host = ""
			},
		},
		{
			name:      "missing database host",
			mutate:    func(cfg *Config) { cfg.Database.Host = "" },
			wantPaths: []string{"database.host"},
		},
		{
			name:      "negative connect retries",
			mutate:    func(cfg *Config) { cfg.Database.ConnectRetries = -1 },
			wantPaths: []string{"database.connectRetries"},
		},
		{
			name: "redis enabled without host",
			mutate: func(cfg *Config) {
				cfg.Redis.Enabled = true
				cfg.Redis.Host = ""
			},
			wantPaths: []string{"redis.host"},
		},
		{
			name:      "auth without secret",
			mutate:    func(cfg *Config) { cfg.Auth.Enabled = true },
			wantPaths: []string{"auth.jwtSecret"},
		},
		{
			name: "bad limiter settings",
			mutate: func(cfg *Config) {
				cfg.RateLimit.Algorithm = "leaky_bucket"
				cfg.RateLimit.Store = "etcd"
				cfg.RateLimit.QuoteMax = 0
				cfg.RateLimit.ContributionWindow = 0
			},
			wantPaths: []string{"rateLimit.algorithm", "rateLimit.store", "rateLimit.quote", "rateLimit.contribution"},
		},
		{
			name:      "redis store without redis",
			mutate:    func(cfg *Config) { cfg.RateLimit.Store = "redis" },
			wantPaths: []string{"rateLimit.store"},
		},
		{
			name: "token bucket with redis store",
			mutate: func(cfg *Config) {
				cfg.Redis.Enabled = true
				cfg.RateLimit.Algorithm = "token_bucket"
				cfg.RateLimit.Store = "redis"
			},
			wantPaths: []string{"rateLimit.store"},
		},
		{
			name:      "metrics path",
			mutate:    func(cfg *Config) { cfg.Metrics.Path = "metrics" },
			wantPaths: []string{"metrics.path"},
		},
		{
			name: "logging",
			mutate: func(cfg *Config) {
				cfg.Logging.Level = "trace"
				cfg.Logging.Format = "xml"
			},
			wantPaths: []string{"logging.level", "logging.format"},
		},
		{
			name: "quotes",
			mutate: func(cfg *Config) {
				cfg.Quotes.TTL = 0
				cfg.Quotes.PurgeSchedule = "every now and then"
			},
			wantPaths: []string{"quotes.ttl", "quotes.purgeSchedule"},
		},
		{
			name: "tracing",
			mutate: func(cfg *Config) {
				cfg.Tracing.Enabled = true
				cfg.Tracing.SamplingRate = 2
			},
			wantPaths: []string{"tracing.samplingRate", "tracing.otlpEndpoint"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig(ServicePricing)
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if len(tt.wantPaths) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, util.ErrConfigInvalid)

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			paths := make([]string, 0, len(verrs))
			for _, e := range verrs {
				paths = append(paths, e.Path)
			}
			for _, want := range tt.wantPaths {
				assert.Contains(t, paths, want)
			}
		})
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	err := ValidateConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidationErrors_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
	assert.Equal(t, "server.port: bad", ValidationErrors{{Path: "server.port", Message: "bad"}}.Error())

	multi := ValidationErrors{{Path: "a", Message: "x"}, {Message: "y"}}
	assert.Contains(t, multi.Error(), "2 validation errors")
	assert.Contains(t, multi.Error(), "2. y")
}

func TestRateLimitConfig_Profile(t *testing.T) {
	t.Parallel()

	r := RateLimitConfig{
		DefaultMax: 100, DefaultWindow: time.Minute,
		QuoteMax: 5, QuoteWindow: time.Second,
		ContributionMax: 2, ContributionWindow: time.Hour,
	}

	assert.Equal(t, 5, r.Profile(ProfileQuote).Max)
	assert.Equal(t, time.Hour, r.Profile(ProfileContribution).Window)
	assert.Equal(t, ProfileDefault, r.Profile("unknown").Name)
	assert.Len(t, r.Profiles(), 3)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	d := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())

	d.URL = "postgres://x"
	assert.Equal(t, "postgres://x", d.DSN())
}
