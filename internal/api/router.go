package api

import (
	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avainsure/internal/config"
	"github.com/vyrodovalexey/avainsure/internal/health"
	"github.com/vyrodovalexey/avainsure/internal/middleware"
	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/ratelimit"
)

// BasePath prefixes every service route.
const BasePath = "/api/v1"

// Limiters resolves named rate limit profiles.
type Limiters interface {
	Get(name string) ratelimit.Limiter
}

// Registrar mounts a service's routes.
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup, mw *Middleware)
}

// RouterConfig holds the collaborators of the HTTP engine.
type RouterConfig struct {
	Config   *config.Config
	Logger   observability.Logger
	Metrics  *observability.Metrics
	Tracer   *observability.Tracer
	Limiters Limiters
	Health   *health.Checker
}

// Middleware builds the per-route middlewares available to registrars.
type Middleware struct {
	limiters Limiters
	logger   observability.Logger
	metrics  *observability.Metrics
	skip     []string
	auth     gin.HandlerFunc
	clientIP ratelimit.KeyFunc
}

func newMiddleware(cfg RouterConfig) *Middleware {
	mw := &Middleware{
		limiters: cfg.Limiters,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		skip:     []string{BasePath + "/health", BasePath + "/health/deep"},
		auth:     func(c *gin.Context) { c.Next() },
	}

	extractor, err := ratelimit.NewClientIPExtractor(cfg.Config.Server.TrustedProxies)
	if err != nil {
		cfg.Logger.Warn("ignoring invalid trusted proxies", observability.Error(err))
	}
	mw.clientIP = extractor.KeyFunc()

	if cfg.Config.Auth.Enabled {
		mw.auth = middleware.Auth(middleware.AuthConfig{
			Secret: []byte(cfg.Config.Auth.JWTSecret),
			Issuer: cfg.Config.Auth.Issuer,
			Logger: cfg.Logger,
		})
	}

	return mw
}

// RateLimit returns the limiter middleware of the named profile. Without
// limiters it passes every request through.
func (m *Middleware) RateLimit(profile string) gin.HandlerFunc {
	if m.limiters == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return middleware.RateLimit(middleware.RateLimitConfig{
		Profile:   profile,
		Limiter:   m.limiters.Get(profile),
		KeyFunc:   m.clientIP,
		Logger:    m.logger,
		Metrics:   m.metrics,
		SkipPaths: m.skip,
	})
}

// Auth returns the bearer token middleware, or a pass-through when
// authentication is disabled.
func (m *Middleware) Auth() gin.HandlerFunc {
	return m.auth
}

// NewRouter assembles the engine: the shared middleware chain, health and
// metrics endpoints, and the routes of each registrar behind the default
// rate limit profile.
func NewRouter(cfg RouterConfig, registrars ...Registrar) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	registerValidation()

	mw := newMiddleware(cfg)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Config.Server.TrustedProxies); err != nil {
		cfg.Logger.Warn("ignoring invalid trusted proxies", observability.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		middleware.RequestID(),
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig()),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:    cfg.Logger,
			SkipPaths: append([]string{cfg.Config.Metrics.Path}, mw.skip...),
		}),
		middleware.Metrics(cfg.Metrics),
	)
	if cfg.Tracer != nil {
		router.Use(middleware.Tracing(cfg.Tracer))
	}
	router.Use(
		middleware.ErrorHandler(middleware.ErrorHandlerConfig{
			Logger:      cfg.Logger,
			Metrics:     cfg.Metrics,
			Development: cfg.Config.App.IsDevelopment(),
		}),
		middleware.Recovery(),
		middleware.BodyLimit(cfg.Config.Server.MaxBodySize),
	)
	router.NoRoute(middleware.NotFound())

	if cfg.Config.Metrics.Enabled && cfg.Metrics != nil {
		router.GET(cfg.Config.Metrics.Path, gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := router.Group(BasePath)
	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(v1)
	}

	limited := v1.Group("", mw.RateLimit(config.ProfileDefault))
	for _, r := range registrars {
		r.RegisterRoutes(limited, mw)
	}

	return router
}
