package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ErrCartConflict is returned when a cart kept changing underneath an update
var ErrCartConflict = errors.New("cart was modified concurrently, retry")

const maxCartUpdateAttempts = 5

// CartRepository keeps one cart per shopper in Redis
type CartRepository interface {
	// Get returns the cart, or an empty one when none is stored
	Get(ctx context.Context, id string) (*domain.Cart, error)
	// Update loads the cart, applies fn and stores the result atomically.
	// fn may be called more than once when the cart changes concurrently.
	Update(ctx context.Context, id string, fn func(cart *domain.Cart) error) (*domain.Cart, error)
	Delete(ctx context.Context, id string) error
}

type cartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a Redis backed CartRepository. Carts expire ttl
// after their last change.
func NewCartRepository(client *redis.Client, ttl time.Duration) CartRepository {
	return &cartRepository{client: client, ttl: ttl}
}

func cartKey(id string) string {
	return "cart:" + id
}

func (r *cartRepository) Get(ctx context.Context, id string) (*domain.Cart, error) {
	return r.load(ctx, r.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *cartRepository) load(ctx context.Context, c getter, id string) (*domain.Cart, error) {
	raw, err := c.Get(ctx, cartKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewCart(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	cart := &domain.Cart{}
	if err := json.Unmarshal(raw, cart); err != nil {
		// A corrupt cart is dropped rather than blocking the shopper
		return domain.NewCart(id), nil
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	cart.ID = id
	return cart, nil
}

func (r *cartRepository) Update(ctx context.Context, id string, fn func(cart *domain.Cart) error) (*domain.Cart, error) {
	key := cartKey(id)
	var result *domain.Cart

	txf := func(tx *redis.Tx) error {
		cart, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := fn(cart); err != nil {
			return err
		}
		cart.UpdatedAt = time.Now().UTC()

		raw, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("failed to encode cart: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		result = cart
		return nil
	}

	for attempt := 0; attempt < maxCartUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	return nil, ErrCartConflict
}

func (r *cartRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, cartKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
