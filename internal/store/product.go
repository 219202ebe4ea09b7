package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vyrodovalexey/avainsure/internal/database"
	"github.com/vyrodovalexey/avainsure/internal/domain"
)

const productColumns = `id, product_type, name, description, active, configuration, created_at, updated_at`

// ProductStore reads the product catalogue.
type ProductStore struct {
	db   *sqlx.DB
	inst database.Instrumentation
}

// NewProductStore creates a product store.
func NewProductStore(db *sqlx.DB, inst database.Instrumentation) *ProductStore {
	return &ProductStore{db: db, inst: inst}
}

// List returns every product, ordered by type and name.
func (s *ProductStore) List(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}

	err := s.inst.Run(ctx, "products.list", func(ctx context.Context) error {
		return s.db.SelectContext(ctx, &products,
			`SELECT `+productColumns+` FROM products ORDER BY product_type, name`)
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}

// GetByType returns the most recent product of the given type, or nil.
func (s *ProductStore) GetByType(ctx context.Context, productType domain.ProductType) (*domain.Product, error) {
	var p domain.Product

	err := s.inst.Run(ctx, "products.get_by_type", func(ctx context.Context) error {
		return s.db.GetContext(ctx, &p,
			`SELECT `+productColumns+` FROM products WHERE product_type = $1 ORDER BY created_at DESC LIMIT 1`,
			string(productType))
	})
	if database.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productType, err)
	}

	return &p, nil
}
