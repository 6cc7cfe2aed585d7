package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrCartEmpty          = errors.New("cart is empty")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrOrderNotRecorded   = errors.New("payment received but the order could not be recorded; it will be retried")
)

// CheckoutRequest is what the shopper submits on the checkout form
type CheckoutRequest struct {
	CartID         string
	CustomerEmail  string
	Address        string
	Pincode        string
	ShippingOption string
}

// CheckoutStart is handed to the client to open the gateway's payment widget
type CheckoutStart struct {
	GatewayOrderID string          `json:"gateway_order_id"`
	KeyID          string          `json:"key_id"`
	Amount         decimal.Decimal `json:"amount"`
	AmountSubunits int64           `json:"amount_subunits"`
	Currency       string          `json:"currency"`
	StoreName      string          `json:"store_name"`
	Quote          pricing.Quote   `json:"quote"`
}

// ConfirmRequest carries the gateway's success callback
type ConfirmRequest struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
	CustomerEmail  string
}

// Confirmation is the recorded order and the chat link to confirm it by hand
type Confirmation struct {
	Order       *domain.Order `json:"order"`
	WhatsAppURL string        `json:"whatsapp_url"`
}

// CheckoutService hands carts to the payment gateway and records paid orders
type CheckoutService interface {
	Start(ctx context.Context, req CheckoutRequest) (*CheckoutStart, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error)
}

type checkoutService struct {
	carts    repository.CartRepository
	sessions repository.CheckoutSessionRepository
	orders   repository.OrderRepository
	gateway  payment.Gateway
	rules    pricing.Rules
	store    config.StoreConfig
	currency string
	logger   *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	carts repository.CartRepository,
	sessions repository.CheckoutSessionRepository,
	orders repository.OrderRepository,
	gateway payment.Gateway,
	rules pricing.Rules,
	store config.StoreConfig,
	currency string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		carts:    carts,
		sessions: sessions,
		orders:   orders,
		gateway:  gateway,
		rules:    rules,
		store:    store,
		currency: currency,
		logger:   logger,
	}
}

// Start stores the delivery details on the cart, prices it and mints a
// gateway order for the final total
func (s *checkoutService) Start(ctx context.Context, req CheckoutRequest) (*CheckoutStart, error) {
	if !ValidCartID(req.CartID) {
		return nil, ErrInvalidCartID
	}
	pincode := strings.TrimSpace(req.Pincode)
	region, err := pricing.RegionForPincode(pincode)
	if err != nil {
		return nil, err
	}
	option := strings.ToLower(strings.TrimSpace(req.ShippingOption))

	cart, err := s.carts.Update(ctx, req.CartID, func(cart *domain.Cart) error {
		if cart.IsEmpty() {
			return ErrCartEmpty
		}
		if _, err := pricing.ShippingFee(option, region, pricing.TotalWeight(cart.Items, s.rules)); err != nil {
			return err
		}
		cart.SetPincode(pincode)
		cart.ShippingOption = option
		return nil
	})
	if err != nil {
		return nil, err
	}

	quote := pricing.Calculate(cart, s.rules)
	if err := quote.ReadyForCheckout(cart); err != nil {
		return nil, err
	}

	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	gwOrder, err := s.gateway.CreateOrder(ctx, quote.FinalTotal, receipt)
	if err != nil {
		s.logger.Error("Gateway order creation failed",
			zap.String("cart_id", req.CartID),
			zap.String("amount", quote.FinalTotal.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	session := &repository.CheckoutSession{
		GatewayOrderID: gwOrder.ID,
		CartID:         req.CartID,
		CustomerEmail:  req.CustomerEmail,
		Address:        strings.TrimSpace(req.Address),
		Pincode:        pincode,
		ShippingOption: option,
		Items:          domain.SnapshotItems(cart.Items),
		Subtotal:       quote.Subtotal,
		Discount:       quote.BundleDiscount,
		ShippingFee:    quote.ShippingFee,
		Amount:         quote.FinalTotal,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}

	s.logger.Info("Checkout started",
		zap.String("cart_id", req.CartID),
		zap.String("gateway_order_id", gwOrder.ID),
		zap.String("amount", quote.FinalTotal.String()),
		zap.Int("bundles_applied", quote.BundlesApplied),
	)

	return &CheckoutStart{
		GatewayOrderID: gwOrder.ID,
		KeyID:          s.gateway.KeyID(),
		Amount:         quote.FinalTotal,
		AmountSubunits: payment.ToSubunits(quote.FinalTotal),
		Currency:       s.currency,
		StoreName:      s.store.Name,
		Quote:          quote,
	}, nil
}

// Confirm verifies the gateway callback and writes the order exactly once.
// Confirming a payment that already has an order returns that order to the
// customer who placed it; anyone else gets ErrCheckoutSessionNotFound.
func (s *checkoutService) Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	if req.CustomerEmail == "" {
		return nil, repository.ErrCheckoutSessionNotFound
	}
	if err := s.gateway.VerifySignature(req.GatewayOrderID, req.PaymentID, req.Signature); err != nil {
		s.logger.Warn("Payment signature rejected",
			zap.String("gateway_order_id", req.GatewayOrderID),
			zap.String("payment_id", req.PaymentID),
		)
		return nil, err
	}

	existing, err := s.orders.FindByPaymentID(ctx, req.PaymentID)
	if err == nil {
		return s.replayed(existing, req)
	}
	if !errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}

	session, err := s.sessions.Find(ctx, req.GatewayOrderID)
	if err != nil {
		if errors.Is(err, repository.ErrCheckoutSessionNotFound) {
			s.logger.Error("Payment captured for unknown checkout",
				zap.String("gateway_order_id", req.GatewayOrderID),
				zap.String("payment_id", req.PaymentID),
			)
		}
		return nil, err
	}
	if !strings.EqualFold(req.CustomerEmail, session.CustomerEmail) {
		return nil, repository.ErrCheckoutSessionNotFound
	}

	order := &domain.Order{
		ID:             uuid.New(),
		CustomerEmail:  session.CustomerEmail,
		Address:        session.Address,
		Pincode:        session.Pincode,
		Subtotal:       session.Subtotal,
		Discount:       session.Discount,
		ShippingFee:    session.ShippingFee,
		Amount:         session.Amount,
		Items:          session.Items,
		PaymentID:      req.PaymentID,
		GatewayOrderID: req.GatewayOrderID,
		Status:         domain.OrderStatusPaid,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrOrderAlreadyExists) {
			// a concurrent confirm won the race
			if existing, findErr := s.orders.FindByPaymentID(ctx, req.PaymentID); findErr == nil {
				return s.replayed(existing, req)
			}
		}
		s.logger.Error("Payment captured but order write failed",
			zap.String("payment_id", req.PaymentID),
			zap.String("gateway_order_id", req.GatewayOrderID),
			zap.String("customer_email", session.CustomerEmail),
			zap.String("amount", session.Amount.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrOrderNotRecorded, err)
	}

	if err := s.carts.Delete(ctx, session.CartID); err != nil {
		s.logger.Warn("Failed to clear cart after payment", zap.String("cart_id", session.CartID), zap.Error(err))
	}
	if err := s.sessions.Delete(ctx, req.GatewayOrderID); err != nil {
		s.logger.Warn("Failed to delete checkout session", zap.String("gateway_order_id", req.GatewayOrderID), zap.Error(err))
	}

	s.logger.Info("Order recorded",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_id", order.PaymentID),
		zap.String("amount", order.Amount.String()),
	)
	return s.confirmation(order), nil
}

// replayed answers a repeated confirm with the order it already produced
func (s *checkoutService) replayed(order *domain.Order, req ConfirmRequest) (*Confirmation, error) {
	if !strings.EqualFold(order.CustomerEmail, req.CustomerEmail) {
		s.logger.Warn("Confirm replayed by another customer",
			zap.String("payment_id", req.PaymentID),
			zap.String("order_id", order.ID.String()),
		)
		return nil, repository.ErrCheckoutSessionNotFound
	}
	return s.confirmation(order), nil
}

func (s *checkoutService) confirmation(order *domain.Order) *Confirmation {
	return &Confirmation{
		Order:       order,
		WhatsAppURL: notify.OrderLink(s.store.WhatsAppPhone, s.store.Name, notify.LinesFromOrder(order.Items), order.Amount),
	}
}
