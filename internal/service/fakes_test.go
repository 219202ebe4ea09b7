package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/avainsure/internal/config"
	"github.com/vyrodovalexey/avainsure/internal/domain"
	"github.com/vyrodovalexey/avainsure/internal/observability"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

const (
	quoteID1      = "11111111-1111-4111-8111-111111111111"
	enrollmentID1 = "22222222-2222-4222-8222-222222222222"
	contribID1    = "33333333-3333-4333-8333-333333333333"
)

func fixedClock() Clock {
	return func() time.Time { return testNow }
}

func sequenceIDs(ids ...string) IDGenerator {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func allFlags() config.FeatureFlags {
	return config.FeatureFlags{TermLife: true, WholeLife: true, Annuity: true}
}

func observedLogger(level zapcore.Level) (observability.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return observability.NewZapLogger(zap.New(core)), logs
}

func testProduct(t domain.ProductType, active bool) domain.Product {
	cfg, _ := json.Marshal(map[string]any{"base_rate_per_thousand": 0.1, "term_options": []int{10, 20, 30}})
	return domain.Product{
		ID:            "prod-" + string(t),
		ProductType:   t,
		Name:          string(t),
		Active:        active,
		Configuration: types.JSONText(cfg),
	}
}

type fakeProducts struct {
	products []domain.Product
	err      error
}

func (f *fakeProducts) List(context.Context) ([]domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeProducts) GetByType(_ context.Context, t domain.ProductType) (*domain.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.products {
		if f.products[i].ProductType == t {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, nil
}

type fakeQuotes struct {
	mu        sync.Mutex
	quotes    map[string]domain.Quote
	createErr error
	getErr    error
	gets      int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{quotes: map[string]domain.Quote{}}
}

func (f *fakeQuotes) Create(_ context.Context, q *domain.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.quotes[q.ID] = *q
	return nil
}

func (f *fakeQuotes) Get(_ context.Context, id string) (*domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	q, ok := f.quotes[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (f *fakeQuotes) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, q := range f.quotes {
		if q.Expired(now) {
			delete(f.quotes, id)
			n++
		}
	}
	return n, nil
}

type fakeAgents struct {
	rows  map[string]domain.Agent
	calls int
	err   error
}

func (f *fakeAgents) Upsert(_ context.Context, a *domain.Agent) (*domain.Agent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.rows == nil {
		f.rows = map[string]domain.Agent{}
	}
	stored := *a
	if prev, ok := f.rows[a.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = testNow
	}
	stored.UpdatedAt = testNow
	f.rows[a.ID] = stored
	return &stored, nil
}

type fakeEnrollments struct {
	enrollments   map[string]domain.Enrollment
	contributions []domain.Contribution
	createErr     error
	contribErr    error
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{enrollments: map[string]domain.Enrollment{}}
}

func (f *fakeEnrollments) Create(_ context.Context, e *domain.Enrollment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.enrollments[e.ID] = *e
	return nil
}

func (f *fakeEnrollments) Get(_ context.Context, id string) (*domain.Enrollment, error) {
	e, ok := f.enrollments[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeEnrollments) AddContribution(_ context.Context, c *domain.Contribution) error {
	if f.contribErr != nil {
		return f.contribErr
	}
	f.contributions = append(f.contributions, *c)
	return nil
}

func (f *fakeEnrollments) ListContributions(_ context.Context, id string) ([]domain.Contribution, error) {
	out := []domain.Contribution{}
	for _, c := range f.contributions {
		if c.EnrollmentID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func requireNoLeak(t *testing.T, err error, cause error) {
	t.Helper()
	if err == nil || cause == nil {
		return
	}
	if got := err.Error(); got == cause.Error() {
		t.Fatalf("service returned the raw driver error %q", got)
	}
}
