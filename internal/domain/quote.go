package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vyrodovalexey/avainsure/internal/util"
)

// Quote is a priced offer for a product, valid until ExpiresAt.
type Quote struct {
	ID             string      `db:"id" json:"id"`
	ProductType    ProductType `db:"product_type" json:"product_type"`
	Age            int         `db:"age" json:"age"`
	CoverageAmount float64     `db:"coverage_amount" json:"coverage_amount"`
	TermYears      int         `db:"term_years" json:"term_years"`
	Smoker         bool        `db:"smoker" json:"smoker"`
	MonthlyPremium float64     `db:"monthly_premium" json:"monthly_premium"`
	AnnualPremium  float64     `db:"annual_premium" json:"annual_premium"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	ExpiresAt      time.Time   `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the quote is no longer valid at now.
func (q Quote) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// QuoteRequest holds the rating inputs of a quote.
type QuoteRequest struct {
	ProductType    ProductType
	Age            int
	CoverageAmount float64
	TermYears      int
	Smoker         bool
}

// RatingFactors are the pricing parameters read from a product's
// configuration payload.
//
//	monthly = coverage/1000 * baseRate
//	        * max(minAgeLoad, 1 + ageFactor*(age-referenceAge))
//	        * (smokerMultiplier if smoker)
//	        * (1 + termFactor*termYears)
type RatingFactors struct {
	BaseRatePerThousand float64
	ReferenceAge        int
	AgeFactor           float64
	SmokerMultiplier    float64
	TermFactor          float64
	MinAge              int
	MaxAge              int
	MinCoverage         float64
	MaxCoverage         float64
	TermOptions         []int
}

// minAgeLoad keeps the age loading positive for young applicants.
const minAgeLoad = 0.5

// DefaultRatingFactors returns the factors used for keys missing from a
// product configuration.
func DefaultRatingFactors() RatingFactors {
	return RatingFactors{
		BaseRatePerThousand: 0.10,
		ReferenceAge:        30,
		AgeFactor:           0.04,
		SmokerMultiplier:    2.0,
		TermFactor:          0,
		MinAge:              18,
		MaxAge:              85,
		MinCoverage:         1000,
		MaxCoverage:         10000000,
	}
}

// ParseRatingFactors reads rating factors from a product configuration
// payload, falling back to the defaults for absent keys.
func ParseRatingFactors(configuration []byte) (RatingFactors, error) {
	f := DefaultRatingFactors()
	if len(configuration) == 0 {
		return f, nil
	}
	if !gjson.ValidBytes(configuration) {
		return f, fmt.Errorf("invalid product configuration payload")
	}

	root := gjson.ParseBytes(configuration)
	rating := root.Get("rating")
	if !rating.Exists() {
		rating = root
	}

	setFloat(rating, "base_rate_per_thousand", &f.BaseRatePerThousand)
	setInt(rating, "reference_age", &f.ReferenceAge)
	setFloat(rating, "age_factor", &f.AgeFactor)
	setFloat(rating, "smoker_multiplier", &f.SmokerMultiplier)
	setFloat(rating, "term_factor", &f.TermFactor)
	setInt(root, "min_age", &f.MinAge)
	setInt(root, "max_age", &f.MaxAge)
	setFloat(root, "min_coverage", &f.MinCoverage)
	setFloat(root, "max_coverage", &f.MaxCoverage)

	if terms := root.Get("term_options"); terms.IsArray() {
		for _, t := range terms.Array() {
			f.TermOptions = append(f.TermOptions, int(t.Int()))
		}
	}

	return f, nil
}

func setFloat(r gjson.Result, path string, dst *float64) {
	if v := r.Get(path); v.Exists() {
		*dst = v.Float()
	}
}

func setInt(r gjson.Result, path string, dst *int) {
	if v := r.Get(path); v.Exists() {
		*dst = int(v.Int())
	}
}

// Validate checks req against the product limits. Violations are
// returned as a validation error listing every offending field.
func (f RatingFactors) Validate(req QuoteRequest) error {
	var fields []util.FieldError

	if req.Age < f.MinAge || req.Age > f.MaxAge {
		fields = append(fields, util.FieldError{
			Field:   "age",
			Message: fmt.Sprintf("must be between %d and %d", f.MinAge, f.MaxAge),
		})
	}
	if req.CoverageAmount < f.MinCoverage || req.CoverageAmount > f.MaxCoverage {
		fields = append(fields, util.FieldError{
			Field:   "coverage_amount",
			Message: fmt.Sprintf("must be between %.0f and %.0f", f.MinCoverage, f.MaxCoverage),
		})
	}
	if len(f.TermOptions) > 0 && !containsInt(f.TermOptions, req.TermYears) {
		fields = append(fields, util.FieldError{
			Field:   "term_years",
			Message: fmt.Sprintf("must be one of %v", f.TermOptions),
		})
	}

	if len(fields) > 0 {
		return util.NewValidationError("Validation failed", fields...)
	}
	return nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// MonthlyPremium prices req, rounded to cents.
func (f RatingFactors) MonthlyPremium(req QuoteRequest) float64 {
	ageLoad := 1 + f.AgeFactor*float64(req.Age-f.ReferenceAge)
	if ageLoad < minAgeLoad {
		ageLoad = minAgeLoad
	}

	premium := req.CoverageAmount / 1000 * f.BaseRatePerThousand * ageLoad
	if req.Smoker {
		premium *= f.SmokerMultiplier
	}
	premium *= 1 + f.TermFactor*float64(req.TermYears)

	return roundCents(premium)
}

// PriceQuote validates req against the product configuration and builds
// the priced quote. The caller assigns the id.
func PriceQuote(p Product, req QuoteRequest, now time.Time, ttl time.Duration) (*Quote, error) {
	factors, err := ParseRatingFactors(p.Configuration)
	if err != nil {
		return nil, err
	}
	if err := factors.Validate(req); err != nil {
		return nil, err
	}

	monthly := factors.MonthlyPremium(req)

	return &Quote{
		ProductType:    p.ProductType,
		Age:            req.Age,
		CoverageAmount: req.CoverageAmount,
		TermYears:      req.TermYears,
		Smoker:         req.Smoker,
		MonthlyPremium: monthly,
		AnnualPremium:  roundCents(monthly * 12),
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
