package pricing

import (
	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// Quote is the price breakdown of a cart
type Quote struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	BundleDiscount   decimal.Decimal `json:"bundle_discount"`
	BundlesApplied   int             `json:"bundles_applied"`
	TotalWeightGrams int             `json:"total_weight_grams"`
	Region           Region          `json:"region,omitempty"`
	ShippingOptions  []ShippingRate  `json:"shipping_options"`
	ShippingOption   string          `json:"shipping_option,omitempty"`
	ShippingFee      decimal.Decimal `json:"shipping_fee"`
	FinalTotal       decimal.Decimal `json:"final_total"`
}

// TotalWeight sums item weights, using the default for items without one
func TotalWeight(items []domain.CartItem, rules Rules) int {
	total := 0
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		w := it.WeightGrams
		if w <= 0 {
			w = rules.DefaultWeightGrams
		}
		total += w * it.Quantity
	}
	return total
}

// Calculate prices a cart. An invalid pincode or an option that is not
// offered for the destination is ignored here; the cart service rejects those
// before they are stored.
func Calculate(cart *domain.Cart, rules Rules) Quote {
	q := Quote{
		Subtotal:        Subtotal(cart.Items),
		ShippingOptions: []ShippingRate{},
		ShippingFee:     decimal.Zero,
	}
	q.BundleDiscount, q.BundlesApplied = BundleDiscount(cart.Items, rules)
	q.TotalWeightGrams = TotalWeight(cart.Items, rules)

	if cart.Pincode != "" && !cart.IsEmpty() {
		if region, err := RegionForPincode(cart.Pincode); err == nil {
			q.Region = region
			q.ShippingOptions = ShippingOptions(region, q.TotalWeightGrams)
			if cart.ShippingOption != "" {
				if fee, err := ShippingFee(cart.ShippingOption, region, q.TotalWeightGrams); err == nil {
					q.ShippingOption = cart.ShippingOption
					q.ShippingFee = fee
				}
			}
		}
	}

	q.FinalTotal = FinalTotal(q.Subtotal, q.BundleDiscount, q.ShippingFee)
	return q
}

// FinalTotal is subtotal minus discount plus shipping, floored at zero
func FinalTotal(subtotal, discount, shipping decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount).Add(shipping)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// ReadyForCheckout reports why a quote cannot be paid yet, if at all
func (q Quote) ReadyForCheckout(cart *domain.Cart) error {
	if cart.Pincode == "" {
		return ErrDestinationNotSet
	}
	if q.Region == "" {
		return ErrInvalidPincode
	}
	if q.ShippingOption == "" {
		return ErrShippingNotSelected
	}
	return nil
}
