package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxItemQuantity caps the quantity of a single cart row
const MaxItemQuantity = 99

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrQuantityLimit    = fmt.Errorf("quantity of an item cannot exceed %d", MaxItemQuantity)
	ErrInvalidSize      = errors.New("size is not available for this product")
)

// CartItem is a product line in a cart. ID is the product id, suffixed with
// the size when one was chosen, so the same product in two sizes is two rows.
type CartItem struct {
	ID          string          `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	Size        string          `json:"size,omitempty"`
	WeightGrams int             `json:"weight_grams"`
	Quantity    int             `json:"quantity"`
}

// LineTotal is price times quantity
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the single cart of a shopper, keyed by user id or guest id
type Cart struct {
	ID             string     `json:"id"`
	Items          []CartItem `json:"items"`
	Pincode        string     `json:"pincode,omitempty"`
	ShippingOption string     `json:"shipping_option,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewCart returns an empty cart
func NewCart(id string) *Cart {
	return &Cart{ID: id, Items: []CartItem{}}
}

// CartItemID derives the cart row id for a product and optional size
func CartItemID(productID uuid.UUID, size string) string {
	if size == "" {
		return productID.String()
	}
	return productID.String() + "-" + size
}

// NewCartItem snapshots a product into a cart row
func NewCartItem(p *Product, size string, quantity int) (CartItem, error) {
	if quantity <= 0 {
		return CartItem{}, ErrInvalidQuantity
	}
	if quantity > MaxItemQuantity {
		return CartItem{}, ErrQuantityLimit
	}
	size = strings.ToUpper(strings.TrimSpace(size))
	if size != "" && !p.HasSize(size) {
		return CartItem{}, ErrInvalidSize
	}

	name := p.Name
	if size != "" {
		name = p.Name + " - Size " + size
	}

	return CartItem{
		ID:          CartItemID(p.ID, size),
		ProductID:   p.ID,
		Name:        name,
		Price:       p.Price,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Size:        size,
		WeightGrams: p.WeightGrams,
		Quantity:    quantity,
	}, nil
}

// Add merges item into the cart, bumping the quantity of an existing row.
// A row that would pass MaxItemQuantity is left unchanged.
func (c *Cart) Add(item CartItem) error {
	if idx := c.indexOf(item.ID); idx >= 0 {
		if c.Items[idx].Quantity+item.Quantity > MaxItemQuantity {
			return ErrQuantityLimit
		}
		c.Items[idx].Quantity += item.Quantity
		return nil
	}
	if item.Quantity > MaxItemQuantity {
		return ErrQuantityLimit
	}
	c.Items = append(c.Items, item)
	return nil
}

// AddUpTo merges item like Add but clamps the row at MaxItemQuantity
func (c *Cart) AddUpTo(item CartItem) {
	if idx := c.indexOf(item.ID); idx >= 0 {
		c.Items[idx].Quantity = min(c.Items[idx].Quantity+item.Quantity, MaxItemQuantity)
		return
	}
	item.Quantity = min(item.Quantity, MaxItemQuantity)
	c.Items = append(c.Items, item)
}

// SetQuantity sets the quantity of a row; zero or less removes it
func (c *Cart) SetQuantity(id string, quantity int) error {
	idx := c.indexOf(id)
	if idx < 0 {
		return ErrCartItemNotFound
	}
	if quantity <= 0 {
		c.removeAt(idx)
		return nil
	}
	if quantity > MaxItemQuantity {
		return ErrQuantityLimit
	}
	c.Items[idx].Quantity = quantity
	return nil
}

// Decrement takes one unit off a row. Removing the last unit removes the row.
func (c *Cart) Decrement(id string) error {
	idx := c.indexOf(id)
	if idx < 0 {
		return ErrCartItemNotFound
	}
	if c.Items[idx].Quantity <= 1 {
		c.removeAt(idx)
		return nil
	}
	c.Items[idx].Quantity--
	return nil
}

// Remove drops a row regardless of its quantity
func (c *Cart) Remove(id string) error {
	idx := c.indexOf(id)
	if idx < 0 {
		return ErrCartItemNotFound
	}
	c.removeAt(idx)
	return nil
}

// Clear empties the cart and forgets the delivery details
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Pincode = ""
	c.ShippingOption = ""
}

// SetPincode changes the delivery pincode. Any selected shipping option is
// reset, since rates depend on the destination.
func (c *Cart) SetPincode(pincode string) {
	if c.Pincode != pincode {
		c.ShippingOption = ""
	}
	c.Pincode = pincode
}

// ItemCount is the total number of units in the cart
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no rows
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) indexOf(id string) int {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(idx int) {
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}
