package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/avainsure/internal/cache"
	"github.com/vyrodovalexey/avainsure/internal/domain"
	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/util"
)

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) {
	return nil, cache.ErrCircuitOpen
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return cache.ErrCircuitOpen
}

func (brokenCache) Delete(context.Context, string) error { return cache.ErrCircuitOpen }

func (brokenCache) Close() error { return nil }

func newQuoteFixture(t *testing.T, c cache.Cache, logger observability.Logger) (*QuoteService, *fakeQuotes) {
	t.Helper()

	products := NewProductService(&fakeProducts{products: []domain.Product{
		testProduct(domain.ProductTermLife, true),
		testProduct(domain.ProductAnnuity, false),
	}}, allFlags(), nil)
	quotes := newFakeQuotes()

	opts := []QuoteOption{
		WithQuoteClock(fixedClock()),
		WithQuoteIDGenerator(sequenceIDs(quoteID1)),
	}
	if c != nil {
		opts = append(opts, WithQuoteCache(c))
	}

	return NewQuoteService(products, quotes, 30*time.Minute, logger, opts...), quotes
}

func validQuoteRequest() domain.QuoteRequest {
	return domain.QuoteRequest{
		ProductType:    domain.ProductTermLife,
		Age:            30,
		CoverageAmount: 100000,
		TermYears:      20,
	}
}

func TestQuoteService_Calculate(t *testing.T) {
	mem := cache.NewMemoryCache(100)
	t.Cleanup(func() { _ = mem.Close() })
	svc, repo := newQuoteFixture(t, mem, nil)

	q, err := svc.Calculate(context.Background(), validQuoteRequest())
	require.NoError(t, err)

	assert.Equal(t, quoteID1, q.ID)
	assert.Equal(t, 10.0, q.MonthlyPremium)
	assert.Equal(t, 120.0, q.AnnualPremium)
	assert.Equal(t, testNow.Add(30*time.Minute), q.ExpiresAt)
	assert.Contains(t, repo.quotes, quoteID1)

	cached, err := mem.Get(context.Background(), "quote:"+quoteID1)
	require.NoError(t, err)
	var decoded domain.Quote
	require.NoError(t, json.Unmarshal(cached, &decoded))
	assert.Equal(t, q.MonthlyPremium, decoded.MonthlyPremium)
}

func TestQuoteService_Calculate_RecordsMetric(t *testing.T) {
	metrics := observability.NewMetrics("test")
	products := NewProductService(&fakeProducts{products: []domain.Product{
		testProduct(domain.ProductTermLife, true),
	}}, allFlags(), nil)
	svc := NewQuoteService(products, newFakeQuotes(), time.Minute, nil, WithQuoteMetrics(metrics))

	_, err := svc.Calculate(context.Background(), validQuoteRequest())
	require.NoError(t, err)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "test_quotes_calculated_total" {
			found = true
			assert.Equal(t, 1.0, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found)
}

func TestQuoteService_Calculate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*domain.QuoteRequest)
		wantCode int
	}{
		{
			name:     "hidden product",
			mutate:   func(r *domain.QuoteRequest) { r.ProductType = domain.ProductAnnuity },
			wantCode: http.StatusNotFound,
		},
		{
			name:     "unknown product",
			mutate:   func(r *domain.QuoteRequest) { r.ProductType = "pet" },
			wantCode: http.StatusNotFound,
		},
		{
			name:     "age out of range",
			mutate:   func(r *domain.QuoteRequest) { r.Age = 12 },
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "term not offered",
			mutate:   func(r *domain.QuoteRequest) { r.TermYears = 15 },
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newQuoteFixture(t, nil, nil)
			req := validQuoteRequest()
			tt.mutate(&req)

			_, err := svc.Calculate(context.Background(), req)
			require.Error(t, err)
			appErr, ok := util.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.StatusCode)
			assert.Empty(t, repo.quotes)
		})
	}
}

func TestQuoteService_Calculate_StoreError(t *testing.T) {
	svc, repo := newQuoteFixture(t, nil, nil)
	cause := errors.New("pq: connection refused")
	repo.createErr = cause

	_, err := svc.Calculate(context.Background(), validQuoteRequest())
	require.Error(t, err)
	appErr, ok := util.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Failed to calculate quote", appErr.Message)
	assert.False(t, appErr.Operational)
	requireNoLeak(t, err, cause)
}

func TestQuoteService_Get_CacheHitSkipsStore(t *testing.T) {
	mem := cache.NewMemoryCache(100)
	t.Cleanup(func() { _ = mem.Close() })
	svc, repo := newQuoteFixture(t, mem, nil)

	_, err := svc.Calculate(context.Background(), validQuoteRequest())
	require.NoError(t, err)

	q, err := svc.Get(context.Background(), quoteID1)
	require.NoError(t, err)
	assert.Equal(t, quoteID1, q.ID)
	assert.Equal(t, 0, repo.gets)
}

func TestQuoteService_Get_FallsBackToStore(t *testing.T) {
	mem := cache.NewMemoryCache(100)
	t.Cleanup(func() { _ = mem.Close() })
	svc, repo := newQuoteFixture(t, mem, nil)

	repo.quotes[quoteID1] = domain.Quote{
		ID: quoteID1, ProductType: domain.ProductTermLife, MonthlyPremium: 5,
		CreatedAt: testNow, ExpiresAt: testNow.Add(time.Minute),
	}

	q, err := svc.Get(context.Background(), quoteID1)
	require.NoError(t, err)
	assert.Equal(t, 5.0, q.MonthlyPremium)
	assert.Equal(t, 1, repo.gets)

	_, err = mem.Get(context.Background(), "quote:"+quoteID1)
	assert.NoError(t, err, "store hit should repopulate the cache")
}

func TestQuoteService_Get_NotFound(t *testing.T) {
	svc, repo := newQuoteFixture(t, nil, nil)

	repo.quotes[quoteID1] = domain.Quote{ID: quoteID1, ExpiresAt: testNow}

	for _, id := range []string{quoteID1, "33333333-3333-4333-8333-000000000000", "not-a-uuid"} {
		_, err := svc.Get(context.Background(), id)
		assert.ErrorIs(t, err, util.ErrNotFound, id)
	}
	assert.Equal(t, 2, repo.gets, "malformed ids never reach the store")
}

func TestQuoteService_CacheFailuresAreLoggedOnly(t *testing.T) {
	logger, logs := observedLogger(zapcore.WarnLevel)
	svc, repo := newQuoteFixture(t, brokenCache{}, logger)

	q, err := svc.Calculate(context.Background(), validQuoteRequest())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)
	assert.Equal(t, 1, repo.gets)

	// One write after Calculate, one lookup and one backfill write during Get.
	assert.Equal(t, 2, logs.FilterMessage("failed to cache quote").Len())
	assert.Equal(t, 1, logs.FilterMessage("quote cache lookup failed").Len())
}

func TestQuoteService_PurgeExpired(t *testing.T) {
	svc, repo := newQuoteFixture(t, nil, nil)
	repo.quotes["a"] = domain.Quote{ID: "a", ExpiresAt: testNow.Add(-time.Second)}
	repo.quotes["b"] = domain.Quote{ID: "b", ExpiresAt: testNow.Add(time.Second)}

	n, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, repo.quotes, "b")
}
