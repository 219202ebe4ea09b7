// Package domain defines the insurance entities shared by the services
// and the rules that do not depend on storage: product visibility, agent
// defaults and quote rating.
package domain

import (
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/vyrodovalexey/avainsure/internal/config"
)

// ProductType discriminates the insurance products.
type ProductType string

// Known product types.
const (
	ProductTermLife  ProductType = "term_life"
	ProductWholeLife ProductType = "whole_life"
	ProductAnnuity   ProductType = "annuity"
)

// ProductTypes lists every recognized product type.
func ProductTypes() []ProductType {
	return []ProductType{ProductTermLife, ProductWholeLife, ProductAnnuity}
}

// Valid reports whether t is a recognized product type.
func (t ProductType) Valid() bool {
	switch t {
	case ProductTermLife, ProductWholeLife, ProductAnnuity:
		return true
	default:
		return false
	}
}

// Product is a read-only catalogue entry.
type Product struct {
	ID            string         `db:"id" json:"id"`
	ProductType   ProductType    `db:"product_type" json:"product_type"`
	Name          string         `db:"name" json:"name"`
	Description   string         `db:"description" json:"description,omitempty"`
	Active        bool           `db:"active" json:"active"`
	Configuration types.JSONText `db:"configuration" json:"configuration"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// FlagEnabled reports whether the feature flag of t is on. Unknown types
// have no flag and are never enabled.
func FlagEnabled(flags config.FeatureFlags, t ProductType) bool {
	switch t {
	case ProductTermLife:
		return flags.TermLife
	case ProductWholeLife:
		return flags.WholeLife
	case ProductAnnuity:
		return flags.Annuity
	default:
		return false
	}
}

// IsProductVisible reports whether p may be shown: its type is
// recognized, the type's flag is enabled and the product is active.
func IsProductVisible(flags config.FeatureFlags, p Product) bool {
	return p.ProductType.Valid() && FlagEnabled(flags, p.ProductType) && p.Active
}

// FilterVisible returns the visible products, preserving order.
func FilterVisible(flags config.FeatureFlags, products []Product) []Product {
	visible := make([]Product, 0, len(products))
	for _, p := range products {
		if IsProductVisible(flags, p) {
			visible = append(visible, p)
		}
	}
	return visible
}
