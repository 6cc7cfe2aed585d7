// Package pricing computes cart totals: subtotal, the bundle promotion on
// nighties, and the courier fee for a destination pincode. Everything here is
// a pure function of the cart contents.
package pricing

import (
	"errors"
	"strings"

	"storefront/internal/config"

	"github.com/shopspring/decimal"
)

var ErrInvalidRules = errors.New("invalid pricing rules")

// Rules configures the bundle promotion and weight defaults
type Rules struct {
	// BundleCategory selects the items that take part in the bundle offer
	BundleCategory string
	// BundleSize is the number of units priced together
	BundleSize int
	// BundlePrice is the flat price of one full bundle
	BundlePrice decimal.Decimal
	// DefaultWeightGrams is used for items without a recorded weight
	DefaultWeightGrams int
}

// DefaultRules is "any 4 nighties for 999"
func DefaultRules() Rules {
	return Rules{
		BundleCategory:     "Nighties",
		BundleSize:         4,
		BundlePrice:        decimal.NewFromInt(999),
		DefaultWeightGrams: 250,
	}
}

// RulesFromConfig builds pricing rules from configuration
func RulesFromConfig(cfg config.PricingConfig) (Rules, error) {
	rules := Rules{
		BundleCategory:     strings.TrimSpace(cfg.BundleCategory),
		BundleSize:         cfg.BundleSize,
		BundlePrice:        decimal.NewFromFloat(cfg.BundlePrice).Round(2),
		DefaultWeightGrams: cfg.DefaultWeightGrams,
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate rejects rules that would make totals meaningless
func (r Rules) Validate() error {
	if r.BundleSize < 2 {
		return errors.Join(ErrInvalidRules, errors.New("bundle size must be at least 2"))
	}
	if r.BundlePrice.IsNegative() {
		return errors.Join(ErrInvalidRules, errors.New("bundle price must not be negative"))
	}
	if r.DefaultWeightGrams <= 0 {
		return errors.Join(ErrInvalidRules, errors.New("default weight must be positive"))
	}
	return nil
}

// Eligible reports whether an item of category takes part in the bundle
// offer. Matching is case-insensitive equality on the category.
func (r Rules) Eligible(category string) bool {
	if r.BundleCategory == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(category), r.BundleCategory)
}
