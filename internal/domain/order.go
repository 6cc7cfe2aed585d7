package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatusPaid is written when the gateway confirms a payment. Status is
// free text; later transitions happen outside this service.
const OrderStatusPaid = "paid"

// OrderItem is the denormalized snapshot of a cart row stored with an order
type OrderItem struct {
	ID        string          `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Size      string          `json:"size,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url"`
}

// Order is written once per successful payment
type Order struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	CustomerEmail  string          `json:"customer_email" db:"customer_email"`
	Address        string          `json:"address" db:"address"`
	Pincode        string          `json:"pincode" db:"pincode"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	Discount       decimal.Decimal `json:"discount" db:"discount"`
	ShippingFee    decimal.Decimal `json:"shipping_fee" db:"shipping_fee"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Items          []OrderItem     `json:"items" db:"items"`
	PaymentID      string          `json:"payment_id" db:"payment_id"`
	GatewayOrderID string          `json:"gateway_order_id" db:"gateway_order_id"`
	Status         string          `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// SnapshotItems copies cart rows into order items
func SnapshotItems(items []CartItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, OrderItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Price:     it.Price,
			Quantity:  it.Quantity,
			ImageURL:  it.ImageURL,
		})
	}
	return out
}
