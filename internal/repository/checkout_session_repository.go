package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var ErrCheckoutSessionNotFound = errors.New("checkout session not found or expired")

// CheckoutSession is what the shop promised the customer when the gateway
// order was minted; the order row is written from it after payment
type CheckoutSession struct {
	GatewayOrderID string             `json:"gateway_order_id"`
	CartID         string             `json:"cart_id"`
	CustomerEmail  string             `json:"customer_email"`
	Address        string             `json:"address"`
	Pincode        string             `json:"pincode"`
	ShippingOption string             `json:"shipping_option"`
	Items          []domain.OrderItem `json:"items"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	Discount       decimal.Decimal    `json:"discount"`
	ShippingFee    decimal.Decimal    `json:"shipping_fee"`
	Amount         decimal.Decimal    `json:"amount"`
	CreatedAt      time.Time          `json:"created_at"`
}

// CheckoutSessionRepository keeps pending checkouts until the gateway calls back
type CheckoutSessionRepository interface {
	Save(ctx context.Context, session *CheckoutSession) error
	Find(ctx context.Context, gatewayOrderID string) (*CheckoutSession, error)
	Delete(ctx context.Context, gatewayOrderID string) error
}

type checkoutSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCheckoutSessionRepository creates a Redis backed session store
func NewCheckoutSessionRepository(client *redis.Client, ttl time.Duration) CheckoutSessionRepository {
	return &checkoutSessionRepository{client: client, ttl: ttl}
}

func checkoutKey(gatewayOrderID string) string {
	return "checkout:" + gatewayOrderID
}

func (r *checkoutSessionRepository) Save(ctx context.Context, session *CheckoutSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode checkout session: %w", err)
	}
	if err := r.client.Set(ctx, checkoutKey(session.GatewayOrderID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkout session: %w", err)
	}
	return nil
}

func (r *checkoutSessionRepository) Find(ctx context.Context, gatewayOrderID string) (*CheckoutSession, error) {
	raw, err := r.client.Get(ctx, checkoutKey(gatewayOrderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCheckoutSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}

	session := &CheckoutSession{}
	if err := json.Unmarshal(raw, session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	return session, nil
}

func (r *checkoutSessionRepository) Delete(ctx context.Context, gatewayOrderID string) error {
	if err := r.client.Del(ctx, checkoutKey(gatewayOrderID)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkout session: %w", err)
	}
	return nil
}
