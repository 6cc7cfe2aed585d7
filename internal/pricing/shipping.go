package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPincode       = errors.New("pincode must be 6 digits and not start with 0")
	ErrShippingNotAvailable = errors.New("shipping option not available for this destination")
	ErrShippingNotSelected  = errors.New("no shipping option selected")
	ErrDestinationNotSet    = errors.New("delivery pincode not set")
)

// Region is the courier zone of a destination, derived from the first
// digit of an Indian pincode
type Region string

const (
	RegionLocal    Region = "local"
	RegionZone     Region = "zone"
	RegionNational Region = "national"
	RegionRemote   Region = "remote"
)

const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
)

// ShippingRate is one courier offer for a destination and parcel weight
type ShippingRate struct {
	Option        string          `json:"option"`
	Fee           decimal.Decimal `json:"fee"`
	EstimatedDays string          `json:"estimated_days"`
}

// RegionForPincode validates a pincode and maps it to a region. 6xxxxx is
// the store's home circle, 5xxxxx the neighbouring one, 9xxxxx the army
// postal service.
func RegionForPincode(pincode string) (Region, error) {
	if len(pincode) != 6 {
		return "", ErrInvalidPincode
	}
	for _, r := range pincode {
		if r < '0' || r > '9' {
			return "", ErrInvalidPincode
		}
	}

	switch pincode[0] {
	case '6':
		return RegionLocal, nil
	case '5':
		return RegionZone, nil
	case '1', '2', '3', '4', '7', '8':
		return RegionNational, nil
	case '9':
		return RegionRemote, nil
	default:
		return "", ErrInvalidPincode
	}
}

// weight slab upper bounds in grams; index matches rateCard.slabs
var slabLimits = [...]int{500, 1000, 2000, 5000}

type rateCard struct {
	slabs         [len(slabLimits)]int64
	perExtraKg    int64
	estimatedDays string
}

var rateTable = map[string]map[Region]rateCard{
	ShippingStandard: {
		RegionLocal:    {slabs: [4]int64{40, 60, 90, 150}, perExtraKg: 40, estimatedDays: "2-3"},
		RegionZone:     {slabs: [4]int64{50, 70, 110, 180}, perExtraKg: 50, estimatedDays: "3-5"},
		RegionNational: {slabs: [4]int64{70, 100, 150, 250}, perExtraKg: 60, estimatedDays: "5-7"},
		RegionRemote:   {slabs: [4]int64{100, 140, 200, 320}, perExtraKg: 80, estimatedDays: "7-10"},
	},
	ShippingExpress: {
		RegionLocal:    {slabs: [4]int64{80, 110, 160, 260}, perExtraKg: 70, estimatedDays: "1"},
		RegionZone:     {slabs: [4]int64{100, 130, 190, 300}, perExtraKg: 80, estimatedDays: "1-2"},
		RegionNational: {slabs: [4]int64{130, 180, 260, 420}, perExtraKg: 100, estimatedDays: "2-3"},
	},
}

var optionOrder = []string{ShippingStandard, ShippingExpress}

// ShippingFee looks up the fee for one option. Parcels above the last slab
// pay the top slab plus a surcharge per started extra kilogram.
func ShippingFee(option string, region Region, weightGrams int) (decimal.Decimal, error) {
	card, ok := rateTable[option][region]
	if !ok {
		return decimal.Zero, ErrShippingNotAvailable
	}
	return card.fee(weightGrams), nil
}

// ShippingOptions lists the offers for a region and weight, cheapest courier first
func ShippingOptions(region Region, weightGrams int) []ShippingRate {
	rates := make([]ShippingRate, 0, len(optionOrder))
	for _, option := range optionOrder {
		card, ok := rateTable[option][region]
		if !ok {
			continue
		}
		rates = append(rates, ShippingRate{
			Option:        option,
			Fee:           card.fee(weightGrams),
			EstimatedDays: card.estimatedDays,
		})
	}
	return rates
}

func (c rateCard) fee(weightGrams int) decimal.Decimal {
	if weightGrams < 0 {
		weightGrams = 0
	}
	for i, limit := range slabLimits {
		if weightGrams <= limit {
			return decimal.NewFromInt(c.slabs[i])
		}
	}

	last := slabLimits[len(slabLimits)-1]
	extraKg := int64((weightGrams - last + 999) / 1000)
	return decimal.NewFromInt(c.slabs[len(c.slabs)-1] + extraKg*c.perExtraKg)
}
