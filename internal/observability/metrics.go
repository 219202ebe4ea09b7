package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UnmatchedRoute is the route label used for requests that do not match
// any registered route, keeping label cardinality bounded.
const UnmatchedRoute = "unmatched"

// Cache operation results.
const (
	CacheResultHit   = "hit"
	CacheResultMiss  = "miss"
	CacheResultError = "error"
	CacheResultOK    = "ok"
)

// Metrics holds all Prometheus metrics for a service.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	activeRequests   *prometheus.GaugeVec
	rateLimitHits    *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	dbDuration       *prometheus.HistogramVec
	cacheOperations  *prometheus.CounterVec
	quotesCalculated *prometheus.CounterVec
	circuitBreaker   *prometheus.GaugeVec
	buildInfo        *prometheus.GaugeVec
	startTime        prometheus.Gauge
	registry         *prometheus.Registry
}

// NewMetrics creates a new Metrics instance backed by a private registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "insurance"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "route", "status"},
	)

	m.activeRequests = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_requests",
			Help:      "Number of active HTTP requests",
		},
		[]string{"method"},
	)

	m.rateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Total number of requests rejected by a rate limiter",
		},
		[]string{"profile"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of error responses by kind",
		},
		[]string{"kind"},
	)

	m.dbDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_operation_duration_seconds",
			Help:      "Database operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	m.cacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations by result",
		},
		[]string{"operation", "result"},
	)

	m.quotesCalculated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_calculated_total",
			Help:      "Total number of quotes calculated",
		},
		[]string{"product_type"},
	)

	m.circuitBreaker = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help: "Circuit breaker state " +
				"(0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for the service",
		},
		[]string{"service", "version"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of the service in unix seconds",
		},
	)

	m.registerCollectors()

	m.startTime.SetToCurrentTime()

	return m
}

// registerCollectors registers all metric collectors with the
// Prometheus registry.
func (m *Metrics) registerCollectors() {
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.activeRequests,
		m.rateLimitHits,
		m.errorsTotal,
		m.dbDuration,
		m.cacheOperations,
		m.quotesCalculated,
		m.circuitBreaker,
		m.buildInfo,
		m.startTime,
	)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(
		collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{},
		),
	)
}

// InitVecMetrics pre-populates the limiter profiles so the counters
// appear in /metrics output immediately after startup.
func (m *Metrics) InitVecMetrics(profiles ...string) {
	if m == nil {
		return
	}
	for _, p := range profiles {
		m.rateLimitHits.WithLabelValues(p)
	}
}

// RecordRequest records a completed HTTP request. The route must be the
// matched route pattern, never the raw path.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusStr := strconv.Itoa(status)

	m.requestsTotal.WithLabelValues(method, route, statusStr).Inc()
	m.requestDuration.WithLabelValues(method, route, statusStr).Observe(duration.Seconds())
}

// IncrementActiveRequests increments the active requests gauge.
func (m *Metrics) IncrementActiveRequests(method string) {
	if m == nil {
		return
	}
	m.activeRequests.WithLabelValues(method).Inc()
}

// DecrementActiveRequests decrements the active requests gauge.
func (m *Metrics) DecrementActiveRequests(method string) {
	if m == nil {
		return
	}
	m.activeRequests.WithLabelValues(method).Dec()
}

// RecordRateLimitHit records a request rejected by the named profile.
// Client identity is logged, never used as a label.
func (m *Metrics) RecordRateLimitHit(profile string) {
	if m == nil {
		return
	}
	m.rateLimitHits.WithLabelValues(profile).Inc()
}

// RecordError records an error response of the given kind.
func (m *Metrics) RecordError(kind string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(kind).Inc()
}

// ObserveDBOperation records the duration of a database operation.
func (m *Metrics) ObserveDBOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheOperation records a cache operation outcome.
func (m *Metrics) RecordCacheOperation(operation, result string) {
	if m == nil {
		return
	}
	m.cacheOperations.WithLabelValues(operation, result).Inc()
}

// RecordQuoteCalculated records a calculated quote.
func (m *Metrics) RecordQuoteCalculated(productType string) {
	if m == nil {
		return
	}
	m.quotesCalculated.WithLabelValues(productType).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state.
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.circuitBreaker.WithLabelValues(name).Set(float64(state))
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(service, version string) {
	if m == nil {
		return
	}
	m.buildInfo.WithLabelValues(service, version).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
