package pricing

import (
	"sort"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// Subtotal is the list price of the cart
func Subtotal(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		total = total.Add(it.LineTotal())
	}
	return total
}

// BundleDiscount groups the eligible units, most expensive first, into chunks
// of rules.BundleSize. Every full chunk costs rules.BundlePrice; units left
// over stay at list price. A chunk already cheaper than the bundle price gets
// no discount. Returns the discount and how many bundles were applied.
func BundleDiscount(items []domain.CartItem, rules Rules) (decimal.Decimal, int) {
	if rules.BundleSize < 2 {
		return decimal.Zero, 0
	}

	units := eligibleUnits(items, rules)
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].GreaterThan(units[j])
	})

	discount := decimal.Zero
	bundles := 0
	for start := 0; start+rules.BundleSize <= len(units); start += rules.BundleSize {
		chunk := decimal.Sum(decimal.Zero, units[start:start+rules.BundleSize]...)
		if chunk.GreaterThan(rules.BundlePrice) {
			discount = discount.Add(chunk.Sub(rules.BundlePrice))
		}
		bundles++
	}

	return discount, bundles
}

func eligibleUnits(items []domain.CartItem, rules Rules) []decimal.Decimal {
	var units []decimal.Decimal
	for _, it := range items {
		if !rules.Eligible(it.Category) {
			continue
		}
		for i := 0; i < it.Quantity; i++ {
			units = append(units, it.Price)
		}
	}
	return units
}
