package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Category      string          `json:"category" db:"category"`
	ImageURL      string          `json:"image_url" db:"image_url"`
	GalleryImages []string        `json:"gallery_images" db:"gallery_images"`
	Sizes         []string        `json:"sizes" db:"sizes"`
	WeightGrams   int             `json:"weight_grams" db:"weight_grams"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// HasSize reports whether size is one of the product's sizes. Products
// without a size list accept any size.
func (p *Product) HasSize(size string) bool {
	if len(p.Sizes) == 0 {
		return true
	}
	for _, s := range p.Sizes {
		if strings.EqualFold(s, size) {
			return true
		}
	}
	return false
}

// CategorySummary is a distinct product category with the number of products in it
type CategorySummary struct {
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
}
