package api

import (
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avainsure/internal/config"
)

const termLifeConfig = `{"base_rate_per_thousand":0.1,"term_options":[10,20,30]}`

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "product_type", "name", "description", "active", "configuration", "created_at", "updated_at",
	})
}

func expectProductByType(mock sqlmock.Sqlmock, productType string, active bool) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE product_type = $1")).
		WithArgs(productType).
		WillReturnRows(productRows().AddRow(
			"prod-1", productType, "Term Life 20", "", active, []byte(termLifeConfig), testTime, testTime))
}

func quotePayload() map[string]any {
	return map[string]any{
		"product_type":    "term_life",
		"age":             30,
		"coverage_amount": 100000,
		"term_years":      20,
		"smoker":          false,
	}
}

func TestListProducts_FiltersByFlagAndActive(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Features.Annuity = false })
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM products ORDER BY")).WillReturnRows(productRows().
		AddRow("p1", "term_life", "Term", "", true, []byte(`{}`), testTime, testTime).
		AddRow("p2", "whole_life", "Whole", "", false, []byte(`{}`), testTime, testTime).
		AddRow("p3", "annuity", "Annuity", "", true, []byte(`{}`), testTime, testTime).
		AddRow("p4", "pet_insurance", "Pets", "", true, []byte(`{}`), testTime, testTime))

	w := env.do(t, http.MethodGet, "/api/v1/products", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	products := decode(t, w)["products"].([]any)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].(map[string]any)["id"])
}

func TestListProducts_EmptyIsList(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mock.ExpectQuery("FROM products").WillReturnRows(productRows())

	w := env.do(t, http.MethodGet, "/api/v1/products", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"products":[]}`, w.Body.String())
}

func TestListProducts_InternalErrorMasking(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:5432: connection refused")

	t.Run("production", func(t *testing.T) {
		env := newTestEnv(t, nil)
		env.mock.ExpectQuery("FROM products").WillReturnError(cause)

		w := env.do(t, http.MethodGet, "/api/v1/products", nil, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Internal server error", body["error"])
		assert.NotContains(t, body, "cause")
		assert.NotContains(t, w.Body.String(), "10.0.0.5")
		assert.Equal(t, 1, env.logs.FilterMessage("failed to list products").Len())
	})

	t.Run("development", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *config.Config) { cfg.App.Env = config.EnvDevelopment })
		env.mock.ExpectQuery("FROM products").WillReturnError(cause)

		w := env.do(t, http.MethodGet, "/api/v1/products", nil, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "Failed to fetch products", body["error"])
		assert.Contains(t, body["cause"], "connection refused")
		assert.NotContains(t, body, "stack")
	})
}

func TestGetProduct(t *testing.T) {
	t.Run("visible", func(t *testing.T) {
		env := newTestEnv(t, nil)
		expectProductByType(env.mock, "term_life", true)

		w := env.do(t, http.MethodGet, "/api/v1/products/term_life", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "term_life", decode(t, w)["product"].(map[string]any)["product_type"])
	})

	t.Run("inactive", func(t *testing.T) {
		env := newTestEnv(t, nil)
		expectProductByType(env.mock, "term_life", false)

		w := env.do(t, http.MethodGet, "/api/v1/products/term_life", nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown type never queried", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.do(t, http.MethodGet, "/api/v1/products/pet_insurance", nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Product not found", decode(t, w)["error"])
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("flag disabled never queried", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *config.Config) { cfg.Features.TermLife = false })

		w := env.do(t, http.MethodGet, "/api/v1/products/term_life", nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})
}

func TestCalculateQuote_StoresAndServesFromCache(t *testing.T) {
	env := newTestEnv(t, nil)
	expectProductByType(env.mock, "term_life", true)
	env.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quotes")).WillReturnResult(sqlmock.NewResult(0, 1))

	w := env.do(t, http.MethodPost, "/api/v1/quotes/calculate", quotePayload(), nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quote := decode(t, w)["quote"].(map[string]any)
	assert.Equal(t, 10.0, quote["monthly_premium"])
	assert.Equal(t, 120.0, quote["annual_premium"])

	createdAt, err := time.Parse(time.RFC3339Nano, quote["created_at"].(string))
	require.NoError(t, err)
	expiresAt, err := time.Parse(time.RFC3339Nano, quote["expires_at"].(string))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultQuoteTTL, expiresAt.Sub(createdAt))

	id := quote["id"].(string)
	w = env.do(t, http.MethodGet, "/api/v1/quotes/"+id, nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode(t, w)["quote"].(map[string]any)["id"])
	assert.NoError(t, env.mock.ExpectationsWereMet(), "cached quote must not hit the database")
}

func TestCalculateQuote_ValidationNeverQueries(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		body   string
		field  string
	}{
		{name: "missing age", mutate: func(p map[string]any) { delete(p, "age") }, field: "age"},
		{name: "negative coverage", mutate: func(p map[string]any) { p["coverage_amount"] = -5 }, field: "coverage_amount"},
		{name: "missing product type", mutate: func(p map[string]any) { delete(p, "product_type") }, field: "product_type"},
		{name: "age as string", mutate: func(p map[string]any) { p["age"] = "thirty" }, field: "age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			payload := quotePayload()
			tt.mutate(payload)

			w := env.do(t, http.MethodPost, "/api/v1/quotes/calculate", payload, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, detailFields(t, decode(t, w)), tt.field)
			assert.NoError(t, env.mock.ExpectationsWereMet())
		})
	}
}

func TestCalculateQuote_ProductLimits(t *testing.T) {
	env := newTestEnv(t, nil)
	expectProductByType(env.mock, "term_life", true)

	payload := quotePayload()
	payload["term_years"] = 15
	w := env.do(t, http.MethodPost, "/api/v1/quotes/calculate", payload, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"term_years"}, detailFields(t, decode(t, w)))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCalculateQuote_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.RateLimit.QuoteMax = 1
		cfg.RateLimit.QuoteWindow = time.Hour
	})
	expectProductByType(env.mock, "term_life", true)
	env.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO quotes")).WillReturnResult(sqlmock.NewResult(0, 1))

	first := env.do(t, http.MethodPost, "/api/v1/quotes/calculate", quotePayload(), nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := env.do(t, http.MethodPost, "/api/v1/quotes/calculate", quotePayload(), nil)

	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, false, decode(t, second)["success"])
	assert.NoError(t, env.mock.ExpectationsWereMet(), "rejected request must not reach the database")

	products := env.do(t, http.MethodGet, "/api/v1/products/pet_insurance", nil, nil)
	assert.Equal(t, http.StatusNotFound, products.Code, "other routes keep their own limit")
}

func TestGetQuote(t *testing.T) {
	quoteColumns := []string{
		"id", "product_type", "age", "coverage_amount", "term_years", "smoker",
		"monthly_premium", "annual_premium", "created_at", "expires_at",
	}
	const id = "11111111-1111-4111-8111-111111111111"

	t.Run("from store", func(t *testing.T) {
		env := newTestEnv(t, nil)
		now := time.Now().UTC()
		env.mock.ExpectQuery(regexp.QuoteMeta("FROM quotes WHERE id = $1")).WithArgs(id).
			WillReturnRows(sqlmock.NewRows(quoteColumns).
				AddRow(id, "term_life", 30, 100000.0, 20, false, 10.0, 120.0, now, now.Add(time.Hour)))

		w := env.do(t, http.MethodGet, "/api/v1/quotes/"+id, nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, id, decode(t, w)["quote"].(map[string]any)["id"])
	})

	t.Run("expired", func(t *testing.T) {
		env := newTestEnv(t, nil)
		past := time.Now().UTC().Add(-2 * time.Hour)
		env.mock.ExpectQuery("FROM quotes").WithArgs(id).
			WillReturnRows(sqlmock.NewRows(quoteColumns).
				AddRow(id, "term_life", 30, 100000.0, 20, false, 10.0, 120.0, past, past.Add(time.Hour)))

		w := env.do(t, http.MethodGet, "/api/v1/quotes/"+id, nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Quote not found", decode(t, w)["error"])
	})

	t.Run("malformed id", func(t *testing.T) {
		env := newTestEnv(t, nil)

		w := env.do(t, http.MethodGet, "/api/v1/quotes/not-a-uuid", nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})
}
