// Package payment talks to the Razorpay-compatible payment gateway: it mints
// gateway orders for a checkout and verifies the signature the gateway hands
// the client after a successful payment.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/config"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidSignature = errors.New("payment signature mismatch")
	ErrInvalidAmount    = errors.New("amount must be at least one paisa")
	ErrGatewayRejected  = errors.New("payment gateway rejected the request")
	ErrNotConfigured    = errors.New("payment gateway credentials are not configured")
)

// GatewayOrder is the order the gateway minted for a checkout
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway is the subset of the payment gateway the checkout needs
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*GatewayOrder, error)
	VerifySignature(orderID, paymentID, signature string) error
	KeyID() string
}

type client struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	backoff    func() retry.Backoff
	logger     *zap.Logger
}

// Option customizes the gateway client
type Option func(*client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *client) { cl.httpClient = c }
}

// WithBackoff replaces the retry policy for transient gateway failures
func WithBackoff(b func() retry.Backoff) Option {
	return func(cl *client) { cl.backoff = b }
}

// NewGateway creates a gateway client from configuration
func NewGateway(cfg config.PaymentConfig, logger *zap.Logger, opts ...Option) Gateway {
	c := &client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		currency:   cfg.Currency,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) KeyID() string {
	return c.keyID
}

// ToSubunits converts rupees to paise, rounding half away from zero
func ToSubunits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder mints a gateway order for amount. 5xx responses and network
// errors are retried; 4xx responses are returned as ErrGatewayRejected.
func (c *client) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*GatewayOrder, error) {
	if c.keyID == "" || c.keySecret == "" {
		return nil, ErrNotConfigured
	}

	subunits := ToSubunits(amount)
	if subunits < 1 {
		return nil, ErrInvalidAmount
	}

	body, err := json.Marshal(createOrderRequest{Amount: subunits, Currency: c.currency, Receipt: receipt})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order request: %w", err)
	}

	var order GatewayOrder
	attempt := 0
	err = retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.keyID, c.keySecret)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("Payment gateway unreachable", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retry.RetryableError(err)
		}

		switch {
		case resp.StatusCode >= 500:
			c.logger.Warn("Payment gateway error", zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
			return retry.RetryableError(fmt.Errorf("gateway returned %d", resp.StatusCode))
		case resp.StatusCode >= 400:
			return fmt.Errorf("%w: %d %s", ErrGatewayRejected, resp.StatusCode, gatewayErrorDescription(raw))
		}

		if err := json.Unmarshal(raw, &order); err != nil {
			return fmt.Errorf("failed to decode gateway order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway order: %w", err)
	}

	c.logger.Info("Gateway order created",
		zap.String("gateway_order_id", order.ID),
		zap.Int64("amount", order.Amount),
		zap.String("receipt", receipt),
	)
	return &order, nil
}

// VerifySignature checks the HMAC-SHA256 of "order_id|payment_id" keyed with
// the key secret against the hex signature the gateway issued
func (c *client) VerifySignature(orderID, paymentID, signature string) error {
	if c.keySecret == "" {
		return ErrNotConfigured
	}
	expected := Sign(c.keySecret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the payment signature for an order and payment id
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func gatewayErrorDescription(raw []byte) string {
	var body struct {
		Error struct {
			Description string `json:"description"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error.Description != "" {
		return body.Error.Description
	}
	return http.StatusText(http.StatusBadRequest)
}
