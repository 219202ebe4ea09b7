package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		namespace string
	}{
		{name: "with custom namespace", namespace: "custom"},
		{name: "with empty namespace uses default", namespace: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			metrics := NewMetrics(tt.namespace)

			assert.NotNil(t, metrics)
			assert.NotNil(t, metrics.requestsTotal)
			assert.NotNil(t, metrics.rateLimitHits)
			assert.NotNil(t, metrics.errorsTotal)
			assert.NotNil(t, metrics.registry)
		})
	}
}

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	metrics.RecordRequest("GET", "/api/v1/products", 200, 10*time.Millisecond)
	metrics.RecordRequest("GET", "/api/v1/products", 200, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		metrics.requestsTotal.WithLabelValues("GET", "/api/v1/products", "200")))
}

func TestMetrics_ActiveRequests(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	metrics.IncrementActiveRequests("POST")
	metrics.IncrementActiveRequests("POST")
	metrics.DecrementActiveRequests("POST")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.activeRequests.WithLabelValues("POST")))
}

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	metrics.InitVecMetrics("default", "quote")
	metrics.RecordRateLimitHit("quote")
	metrics.RecordError("validation")
	metrics.RecordCacheOperation("get", CacheResultMiss)
	metrics.RecordQuoteCalculated("term_life")
	metrics.ObserveDBOperation("agents.upsert", 5*time.Millisecond)
	metrics.SetCircuitBreakerState("redis", 2)
	metrics.SetBuildInfo("pricing-service", "1.0.0")

	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.rateLimitHits.WithLabelValues("default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rateLimitHits.WithLabelValues("quote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.errorsTotal.WithLabelValues("validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheOperations.WithLabelValues("get", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.quotesCalculated.WithLabelValues("term_life")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.circuitBreaker.WithLabelValues("redis")))
}

func TestMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var metrics *Metrics

	assert.NotPanics(t, func() {
		metrics.InitVecMetrics("default")
		metrics.RecordRequest("GET", "/", 200, time.Millisecond)
		metrics.IncrementActiveRequests("GET")
		metrics.DecrementActiveRequests("GET")
		metrics.RecordRateLimitHit("default")
		metrics.RecordError("internal")
		metrics.ObserveDBOperation("op", time.Millisecond)
		metrics.RecordCacheOperation("get", CacheResultHit)
		metrics.RecordQuoteCalculated("annuity")
		metrics.SetCircuitBreakerState("redis", 0)
		metrics.SetBuildInfo("svc", "v")
	})
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("test")
	metrics.RecordRateLimitHit("contribution")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `test_rate_limit_hits_total{profile="contribution"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
	assert.NotNil(t, metrics.Registry())
}
