package service

import (
	"context"

	"github.com/vyrodovalexey/avainsure/internal/config"
	"github.com/vyrodovalexey/avainsure/internal/domain"
	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/util"
)

// ProductService serves the product catalogue filtered by feature flags.
type ProductService struct {
	products ProductRepository
	flags    config.FeatureFlags
	logger   observability.Logger
}

// NewProductService creates a product service.
func NewProductService(
	products ProductRepository,
	flags config.FeatureFlags,
	logger observability.Logger,
) *ProductService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ProductService{products: products, flags: flags, logger: logger}
}

// ListProducts returns the visible products.
func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		s.logger.WithContext(ctx).Error("failed to list products", observability.Error(err))
		return nil, util.NewInternalError("Failed to fetch products", err)
	}

	return domain.FilterVisible(s.flags, products), nil
}

// GetProduct returns the visible product of the given type. Unknown,
// disabled, inactive and missing products are all reported as not found.
func (s *ProductService) GetProduct(ctx context.Context, productType string) (*domain.Product, error) {
	t := domain.ProductType(productType)
	if !t.Valid() || !domain.FlagEnabled(s.flags, t) {
		return nil, util.NewNotFoundError("Product")
	}

	p, err := s.products.GetByType(ctx, t)
	if err != nil {
		s.logger.WithContext(ctx).Error("failed to fetch product",
			observability.String("product_type", productType),
			observability.Error(err),
		)
		return nil, util.NewInternalError("Failed to fetch product", err)
	}
	if p == nil || !domain.IsProductVisible(s.flags, *p) {
		return nil, util.NewNotFoundError("Product")
	}

	return p, nil
}
