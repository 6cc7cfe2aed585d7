package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidCartID is returned for cart ids that are neither a user id nor a guest id
var ErrInvalidCartID = errors.New("invalid cart id")

// CartView is a cart together with its current price breakdown
type CartView struct {
	*domain.Cart
	ItemCount int           `json:"item_count"`
	Quote     pricing.Quote `json:"quote"`
}

// CartService is the single source of truth for shopper carts
type CartService interface {
	Get(ctx context.Context, cartID string) (*CartView, error)
	Add(ctx context.Context, cartID string, productID uuid.UUID, size string, quantity int) (*CartView, error)
	SetQuantity(ctx context.Context, cartID, itemID string, quantity int) (*CartView, error)
	Decrement(ctx context.Context, cartID, itemID string) (*CartView, error)
	Remove(ctx context.Context, cartID, itemID string) (*CartView, error)
	Clear(ctx context.Context, cartID string) error
	SetPincode(ctx context.Context, cartID, pincode string) (*CartView, error)
	SelectShipping(ctx context.Context, cartID, option string) (*CartView, error)
	Merge(ctx context.Context, guestID, userID string) (*CartView, error)
}

type cartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	rules    pricing.Rules
	logger   *zap.Logger
}

// NewCartService creates a new instance of CartService
func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	rules pricing.Rules,
	logger *zap.Logger,
) CartService {
	return &cartService{
		carts:    carts,
		products: products,
		rules:    rules,
		logger:   logger,
	}
}

// GuestCartID mints an id for an anonymous cart
func GuestCartID() string {
	return "guest-" + uuid.NewString()
}

// UserCartID is the cart id of a signed-in user
func UserCartID(userID string) string {
	return "user-" + userID
}

// ValidCartID accepts ids minted by GuestCartID or UserCartID
func ValidCartID(id string) bool {
	for _, prefix := range []string{"guest-", "user-"} {
		if rest, ok := strings.CutPrefix(id, prefix); ok {
			_, err := uuid.Parse(rest)
			return err == nil
		}
	}
	return false
}

func (s *cartService) view(cart *domain.Cart) *CartView {
	return &CartView{
		Cart:      cart,
		ItemCount: cart.ItemCount(),
		Quote:     pricing.Calculate(cart, s.rules),
	}
}

func (s *cartService) update(ctx context.Context, cartID string, fn func(*domain.Cart) error) (*CartView, error) {
	if !ValidCartID(cartID) {
		return nil, ErrInvalidCartID
	}
	cart, err := s.carts.Update(ctx, cartID, fn)
	if err != nil {
		return nil, err
	}
	return s.view(cart), nil
}

func (s *cartService) Get(ctx context.Context, cartID string) (*CartView, error) {
	if !ValidCartID(cartID) {
		return nil, ErrInvalidCartID
	}
	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return s.view(cart), nil
}

// Add snapshots the product into the cart, merging with an existing row of
// the same product and size
func (s *cartService) Add(ctx context.Context, cartID string, productID uuid.UUID, size string, quantity int) (*CartView, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if size == "" && len(product.Sizes) > 0 {
		return nil, domain.ErrInvalidSize
	}

	item, err := domain.NewCartItem(product, size, quantity)
	if err != nil {
		return nil, err
	}

	view, err := s.update(ctx, cartID, func(cart *domain.Cart) error {
		return cart.Add(item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Item added to cart",
		zap.String("cart_id", cartID),
		zap.String("item_id", item.ID),
		zap.Int("quantity", quantity),
	)
	return view, nil
}

func (s *cartService) SetQuantity(ctx context.Context, cartID, itemID string, quantity int) (*CartView, error) {
	return s.update(ctx, cartID, func(cart *domain.Cart) error {
		return cart.SetQuantity(itemID, quantity)
	})
}

func (s *cartService) Decrement(ctx context.Context, cartID, itemID string) (*CartView, error) {
	return s.update(ctx, cartID, func(cart *domain.Cart) error {
		return cart.Decrement(itemID)
	})
}

func (s *cartService) Remove(ctx context.Context, cartID, itemID string) (*CartView, error) {
	return s.update(ctx, cartID, func(cart *domain.Cart) error {
		return cart.Remove(itemID)
	})
}

func (s *cartService) Clear(ctx context.Context, cartID string) error {
	if !ValidCartID(cartID) {
		return ErrInvalidCartID
	}
	if err := s.carts.Delete(ctx, cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// SetPincode validates and stores the delivery pincode. An empty pincode
// clears the destination. Either way the selected courier is reset.
func (s *cartService) SetPincode(ctx context.Context, cartID, pincode string) (*CartView, error) {
	pincode = strings.TrimSpace(pincode)
	if pincode != "" {
		if _, err := pricing.RegionForPincode(pincode); err != nil {
			return nil, err
		}
	}
	return s.update(ctx, cartID, func(cart *domain.Cart) error {
		cart.SetPincode(pincode)
		return nil
	})
}

// SelectShipping picks a courier, which must be offered for the cart's destination
func (s *cartService) SelectShipping(ctx context.Context, cartID, option string) (*CartView, error) {
	option = strings.ToLower(strings.TrimSpace(option))
	return s.update(ctx, cartID, func(cart *domain.Cart) error {
		if cart.Pincode == "" {
			return pricing.ErrDestinationNotSet
		}
		region, err := pricing.RegionForPincode(cart.Pincode)
		if err != nil {
			return err
		}
		if _, err := pricing.ShippingFee(option, region, pricing.TotalWeight(cart.Items, s.rules)); err != nil {
			return err
		}
		cart.ShippingOption = option
		return nil
	})
}

// Merge moves a guest cart into the user's cart after sign in. Rows are
// merged by id and clamped at the item limit; the guest destination wins only
// when the user has none.
func (s *cartService) Merge(ctx context.Context, guestID, userID string) (*CartView, error) {
	if !ValidCartID(guestID) {
		return nil, ErrInvalidCartID
	}
	guest, err := s.carts.Get(ctx, guestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}
	if guest.IsEmpty() {
		return s.Get(ctx, userID)
	}

	view, err := s.update(ctx, userID, func(cart *domain.Cart) error {
		for _, item := range guest.Items {
			cart.AddUpTo(item)
		}
		if cart.Pincode == "" && guest.Pincode != "" {
			cart.Pincode = guest.Pincode
			cart.ShippingOption = guest.ShippingOption
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.carts.Delete(ctx, guestID); err != nil {
		s.logger.Warn("Failed to delete merged guest cart", zap.String("cart_id", guestID), zap.Error(err))
	}
	s.logger.Info("Guest cart merged", zap.String("guest_cart_id", guestID), zap.String("cart_id", userID))
	return view, nil
}
