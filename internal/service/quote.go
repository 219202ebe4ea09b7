package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vyrodovalexey/avainsure/internal/cache"
	"github.com/vyrodovalexey/avainsure/internal/domain"
	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/util"
)

const quoteCachePrefix = "quote:"

// QuoteService prices and looks up quotes.
type QuoteService struct {
	products *ProductService
	quotes   QuoteRepository
	cache    cache.Cache
	metrics  *observability.Metrics
	logger   observability.Logger
	ttl      time.Duration
	now      Clock
	newID    IDGenerator
}

// QuoteOption configures a QuoteService.
type QuoteOption func(*QuoteService)

// WithQuoteCache sets the cache used for quote lookups.
func WithQuoteCache(c cache.Cache) QuoteOption {
	return func(s *QuoteService) {
		s.cache = c
	}
}

// WithQuoteMetrics sets the metrics collector.
func WithQuoteMetrics(m *observability.Metrics) QuoteOption {
	return func(s *QuoteService) {
		s.metrics = m
	}
}

// WithQuoteClock overrides the time source.
func WithQuoteClock(now Clock) QuoteOption {
	return func(s *QuoteService) {
		s.now = now
	}
}

// WithQuoteIDGenerator overrides quote id generation.
func WithQuoteIDGenerator(gen IDGenerator) QuoteOption {
	return func(s *QuoteService) {
		s.newID = gen
	}
}

// NewQuoteService creates a quote service whose quotes live for ttl.
func NewQuoteService(
	products *ProductService,
	quotes QuoteRepository,
	ttl time.Duration,
	logger observability.Logger,
	opts ...QuoteOption,
) *QuoteService {
	if logger == nil {
		logger = observability.NopLogger()
	}

	s := &QuoteService{
		products: products,
		quotes:   quotes,
		logger:   logger,
		ttl:      ttl,
		now:      defaultClock,
		newID:    defaultID,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Calculate prices req against the visible product of its type, stores
// the quote and caches it for its lifetime.
func (s *QuoteService) Calculate(ctx context.Context, req domain.QuoteRequest) (*domain.Quote, error) {
	product, err := s.products.GetProduct(ctx, string(req.ProductType))
	if err != nil {
		return nil, err
	}

	quote, err := domain.PriceQuote(*product, req, s.now(), s.ttl)
	if err != nil {
		if _, ok := util.AsAppError(err); ok {
			return nil, err
		}
		s.logger.WithContext(ctx).Error("invalid product configuration",
			observability.String("product_id", product.ID),
			observability.Error(err),
		)
		return nil, util.NewInternalError("Failed to calculate quote", err)
	}
	quote.ID = s.newID()

	if err := s.quotes.Create(ctx, quote); err != nil {
		s.logger.WithContext(ctx).Error("failed to store quote", observability.Error(err))
		return nil, util.NewInternalError("Failed to calculate quote", err)
	}

	s.cacheQuote(ctx, quote)
	s.metrics.RecordQuoteCalculated(string(quote.ProductType))

	return quote, nil
}

// Get returns the quote with the given id. Quotes that are missing or
// expired are reported as not found.
func (s *QuoteService) Get(ctx context.Context, id string) (*domain.Quote, error) {
	if !validID(id) {
		return nil, util.NewNotFoundError("Quote")
	}

	now := s.now()

	if q := s.cachedQuote(ctx, id); q != nil {
		if q.Expired(now) {
			return nil, util.NewNotFoundError("Quote")
		}
		return q, nil
	}

	q, err := s.quotes.Get(ctx, id)
	if err != nil {
		s.logger.WithContext(ctx).Error("failed to fetch quote",
			observability.String("quote_id", id),
			observability.Error(err),
		)
		return nil, util.NewInternalError("Failed to fetch quote", err)
	}
	if q == nil || q.Expired(now) {
		return nil, util.NewNotFoundError("Quote")
	}

	s.cacheQuote(ctx, q)

	return q, nil
}

// PurgeExpired deletes quotes that have expired and returns how many were
// removed.
func (s *QuoteService) PurgeExpired(ctx context.Context) (int64, error) {
	removed, err := s.quotes.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func quoteKey(id string) string {
	return quoteCachePrefix + id
}

// cacheQuote stores q until it expires. Failures are logged only.
func (s *QuoteService) cacheQuote(ctx context.Context, q *domain.Quote) {
	if s.cache == nil {
		return
	}

	ttl := q.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}

	data, err := json.Marshal(q)
	if err != nil {
		s.logger.Warn("failed to encode quote for cache", observability.Error(err))
		return
	}

	if err := s.cache.Set(ctx, quoteKey(q.ID), data, ttl); err != nil {
		s.logger.WithContext(ctx).Warn("failed to cache quote",
			observability.String("quote_id", q.ID),
			observability.Error(err),
		)
	}
}

// cachedQuote returns the cached quote or nil on miss or failure.
func (s *QuoteService) cachedQuote(ctx context.Context, id string) *domain.Quote {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, quoteKey(id))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WithContext(ctx).Warn("quote cache lookup failed",
				observability.String("quote_id", id),
				observability.Error(err),
			)
		}
		return nil
	}

	var q domain.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		s.logger.WithContext(ctx).Warn("discarding undecodable cached quote",
			observability.String("quote_id", id),
			observability.Error(err),
		)
		_ = s.cache.Delete(ctx, quoteKey(id))
		return nil
	}

	return &q
}
