package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/avainsure/internal/observability"
)

func TestRecovery_RoutesPanicThroughPipeline(t *testing.T) {
	t.Run("production", func(t *testing.T) {
		router, logs := newPipelineRouter(false)
		router.GET("/panic", func(*gin.Context) { panic("nil map write") })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "Internal server error", resp.Error)
		assert.Empty(t, resp.Stack)

		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].ContextMap()["stack"], "goroutine")
	})

	t.Run("development", func(t *testing.T) {
		router, _ := newPipelineRouter(true)
		router.GET("/panic", func(*gin.Context) { panic("nil map write") })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, decodeError(t, w).Stack, "goroutine")
	})
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, observability.RequestIDFromContext(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, "abc-1")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-1", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "abc-1", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	router.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	router := gin.New()
	router.Use(RequestID(), LoggingWithConfig(LoggingConfig{
		Logger:    observability.NewZapLogger(zap.New(core)),
		SkipPaths: []string{"/api/v1/health"},
	}))
	router.GET("/api/v1/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/products", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/products?x=1", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/api/v1/products", fields["path"])
	assert.Equal(t, "x=1", fields["query"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestBodyLimit(t *testing.T) {
	router, _ := newPipelineRouter(false)
	router.Use(BodyLimit(16))
	router.POST("/echo", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.String(http.StatusOK, string(body))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("a", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("a", 64)))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetrics("test")

	router := gin.New()
	router.Use(Metrics(m))
	router.GET("/api/v1/quotes/:quoteId", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, id := range []string{"a", "b", "c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/quotes/"+id, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/path", nil))

	count, err := testutil.GatherAndCount(m.Registry(), "test_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series for the template and one for unmatched requests")
}

func TestTracing_RecordsServerSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })

	tracer := observability.NewTracerFromProvider("test", provider)

	router := gin.New()
	router.Use(RequestID(), Tracing(tracer), ErrorHandler(ErrorHandlerConfig{}), Recovery())
	router.GET("/api/v1/products/:type", func(c *gin.Context) {
		assert.NotEmpty(t, observability.TraceIDFromContext(c.Request.Context()))
		c.Status(http.StatusOK)
	})
	router.GET("/panic", func(*gin.Context) { panic("x") })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/products/annuity", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /api/v1/products/:type", spans[0].Name())
	assert.NotEmpty(t, spans[1].Events(), "panic should be recorded on the span")
}
