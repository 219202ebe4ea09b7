// Package app wires a service from its configuration and runs it until
// shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/avainsure/internal/api"
	"github.com/vyrodovalexey/avainsure/internal/cache"
	"github.com/vyrodovalexey/avainsure/internal/config"
	"github.com/vyrodovalexey/avainsure/internal/database"
	"github.com/vyrodovalexey/avainsure/internal/health"
	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/ratelimit"
	"github.com/vyrodovalexey/avainsure/internal/server"
	"github.com/vyrodovalexey/avainsure/internal/service"
	"github.com/vyrodovalexey/avainsure/internal/store"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "insure"

// purgeTimeout bounds a single expired quote purge.
const purgeTimeout = time.Minute

// App is a fully wired service.
type App struct {
	service config.Service
	cfg     *config.Config
	logger  observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	db        *sqlx.DB
	ownsDB    bool
	redis     *redis.Client
	ownsRedis bool

	quoteCache cache.Cache
	limiters   *ratelimit.Profiles
	health     *health.Checker
	purge      *service.PurgeScheduler
	handler    http.Handler
	server     *server.Server
}

// Option configures an App.
type Option func(*App)

// WithDatabase uses db instead of opening a pool from the configuration.
// The caller keeps ownership of db.
func WithDatabase(db *sqlx.DB) Option {
	return func(a *App) {
		a.db = db
	}
}

// WithRedisClient uses client instead of dialing the configured Redis.
// The caller keeps ownership of client.
func WithRedisClient(client *redis.Client) Option {
	return func(a *App) {
		a.redis = client
	}
}

// New connects the dependencies of svc and assembles its routes. On
// error every resource opened so far is released.
func New(ctx context.Context, svc config.Service, cfg *config.Config, logger observability.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	a := &App{service: svc, cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.init(ctx); err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = a.Close(closeCtx)
		return nil, err
	}

	return a, nil
}

func (a *App) init(ctx context.Context) error {
	a.metrics = observability.NewMetrics(MetricsNamespace)
	a.metrics.SetBuildInfo(a.cfg.App.Name, a.cfg.App.Version)
	a.metrics.InitVecMetrics(config.ProfileDefault, config.ProfileQuote, config.ProfileContribution)

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:    a.cfg.App.Name,
		ServiceVersion: a.cfg.App.Version,
		OTLPEndpoint:   a.cfg.Tracing.OTLPEndpoint,
		SamplingRate:   a.cfg.Tracing.SamplingRate,
		Enabled:        a.cfg.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	a.tracer = tracer

	if err := a.connect(ctx); err != nil {
		return err
	}

	if err := a.initLimiters(); err != nil {
		return err
	}

	a.initHealth()

	registrars, err := a.buildRegistrars()
	if err != nil {
		return err
	}

	a.handler = api.NewRouter(api.RouterConfig{
		Config:   a.cfg,
		Logger:   a.logger,
		Metrics:  a.metrics,
		Tracer:   a.tracer,
		Limiters: a.limiters,
		Health:   a.health,
	}, registrars...)
	a.server = server.New(a.cfg.Server, a.handler, a.logger)

	return nil
}

func (a *App) connect(ctx context.Context) error {
	if a.db == nil {
		db, err := database.Open(ctx, a.cfg.Database, a.logger)
		if err != nil {
			return err
		}
		a.db = db
		a.ownsDB = true
	}

	if a.cfg.Redis.Enabled && a.redis == nil {
		client, err := cache.NewClient(ctx, a.cfg.Redis, a.logger)
		if err != nil {
			return err
		}
		a.redis = client
		a.ownsRedis = true
	}

	return nil
}

// redisClient returns the shared client as an interface, nil when Redis
// is disabled.
func (a *App) redisClient() redis.UniversalClient {
	if a.redis == nil {
		return nil
	}
	return a.redis
}

func (a *App) initLimiters() error {
	limiters, err := ratelimit.NewProfiles(a.cfg.RateLimit, a.redisClient(), a.cfg.Redis.KeyPrefix, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiters: %w", err)
	}
	a.limiters = limiters
	return nil
}

func (a *App) initHealth() {
	a.health = health.NewChecker(a.cfg.App.Name, a.cfg.App.Version,
		health.WithLogger(a.logger),
		health.WithMetrics(health.NewMetrics(MetricsNamespace, a.metrics.Registry())),
	)
	a.health.Register(health.SQLCheck("postgres", a.db))
	if a.redis != nil {
		client := a.redis
		a.health.Register(health.CacheCheck("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
	}
}

func (a *App) instrumentation() database.Instrumentation {
	return database.Instrumentation{Tracer: a.tracer, Metrics: a.metrics}
}

func (a *App) newQuoteCache() cache.Cache {
	opts := []cache.Option{
		cache.WithLogger(a.logger),
		cache.WithMetrics(a.metrics),
		cache.WithTracer(a.tracer),
	}
	if a.redis != nil {
		return cache.NewRedisCache(a.redis, a.cfg.Redis.KeyPrefix, opts...)
	}
	return cache.NewMemoryCache(cache.DefaultMaxEntries, opts...)
}

func (a *App) buildRegistrars() ([]api.Registrar, error) {
	inst := a.instrumentation()

	switch a.service {
	case config.ServicePricing:
		a.quoteCache = a.newQuoteCache()
		products := service.NewProductService(store.NewProductStore(a.db, inst), a.cfg.Features, a.logger)
		quotes := service.NewQuoteService(products, store.NewQuoteStore(a.db, inst), a.cfg.Quotes.TTL, a.logger,
			service.WithQuoteCache(a.quoteCache),
			service.WithQuoteMetrics(a.metrics),
		)

		if a.cfg.Quotes.PurgeSchedule != "" {
			purge, err := service.NewPurgeScheduler(quotes, a.cfg.Quotes.PurgeSchedule, purgeTimeout, a.logger)
			if err != nil {
				return nil, err
			}
			a.purge = purge
		}

		return []api.Registrar{api.NewPricingHandler(products, quotes)}, nil

	case config.ServiceEnrollment:
		products := service.NewProductService(store.NewProductStore(a.db, inst), a.cfg.Features, a.logger)
		enrollments := service.NewEnrollmentService(
			store.NewEnrollmentStore(a.db, inst),
			store.NewQuoteStore(a.db, inst),
			products,
			a.logger,
		)
		return []api.Registrar{api.NewEnrollmentHandler(enrollments)}, nil

	case config.ServiceAgentSync:
		agents := service.NewAgentService(store.NewAgentStore(a.db, inst), a.logger)
		return []api.Registrar{api.NewAgentHandler(agents)}, nil

	default:
		return nil, fmt.Errorf("unknown service %q", a.service)
	}
}

// Handler returns the HTTP handler of the service.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Addr returns the address the server is bound to, or "" before Run.
func (a *App) Addr() string {
	return a.server.Addr()
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// releases every resource.
func (a *App) Run(ctx context.Context) error {
	if a.purge != nil {
		a.purge.Start()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start(ctx) }()

	var serveErr error
	select {
	case serveErr = <-errCh:
		if serveErr == nil {
			serveErr = errors.New("server stopped unexpectedly")
		}
	case <-ctx.Done():
		a.logger.Info("shutting down", observability.String("service", string(a.service)))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var stopErr error
	if serveErr == nil {
		stopErr = a.server.Stop(shutdownCtx)
		serveErr = <-errCh
	}

	return errors.Join(serveErr, stopErr, a.Close(shutdownCtx))
}

// Close releases the resources owned by the app. It is safe to call on a
// partially initialized app.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.purge != nil {
		errs = append(errs, a.purge.Stop(ctx))
	}
	if a.limiters != nil {
		errs = append(errs, a.limiters.Close())
	}
	if a.quoteCache != nil {
		errs = append(errs, a.quoteCache.Close())
	}
	if a.redis != nil && a.ownsRedis {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil && a.ownsDB {
		errs = append(errs, a.db.Close())
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}

	return errors.Join(errs...)
}
