package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"storefront/internal/config"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testGateway(baseURL string) Gateway {
	return NewGateway(config.PaymentConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "secret",
		BaseURL:   baseURL,
		Currency:  "INR",
	}, zap.NewNop(), WithBackoff(func() retry.Backoff {
		return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
	}))
}

func TestCreateOrderSendsPaiseWithBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		var body createOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(105950), body.Amount)
		assert.Equal(t, "INR", body.Currency)
		assert.Equal(t, "rcpt_1", body.Receipt)

		json.NewEncoder(w).Encode(GatewayOrder{ID: "order_abc", Amount: body.Amount, Currency: body.Currency, Receipt: body.Receipt, Status: "created"})
	}))
	defer srv.Close()

	order, err := testGateway(srv.URL).CreateOrder(context.Background(), decimal.RequireFromString("1059.50"), "rcpt_1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(105950), order.Amount)
}

func TestCreateOrderRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(GatewayOrder{ID: "order_retry"})
	}))
	defer srv.Close()

	order, err := testGateway(srv.URL).CreateOrder(context.Background(), decimal.NewFromInt(999), "r")
	require.NoError(t, err)
	assert.Equal(t, "order_retry", order.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateOrderGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testGateway(srv.URL).CreateOrder(context.Background(), decimal.NewFromInt(999), "r")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreateOrderDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount exceeds maximum"}}`))
	}))
	defer srv.Close()

	_, err := testGateway(srv.URL).CreateOrder(context.Background(), decimal.NewFromInt(999), "r")
	assert.ErrorIs(t, err, ErrGatewayRejected)
	assert.Contains(t, err.Error(), "amount exceeds maximum")
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateOrderValidatesInput(t *testing.T) {
	gw := testGateway("http://127.0.0.1:1")
	_, err := gw.CreateOrder(context.Background(), decimal.Zero, "r")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	unconfigured := NewGateway(config.PaymentConfig{BaseURL: "http://127.0.0.1:1"}, zap.NewNop())
	_, err = unconfigured.CreateOrder(context.Background(), decimal.NewFromInt(1), "r")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestToSubunits(t *testing.T) {
	assert.Equal(t, int64(99900), ToSubunits(decimal.NewFromInt(999)))
	assert.Equal(t, int64(1), ToSubunits(decimal.RequireFromString("0.005")))
	assert.Equal(t, int64(12346), ToSubunits(decimal.RequireFromString("123.456")))
}

func TestProperty_SignatureVerification(t *testing.T) {
	gw := testGateway("http://unused")
	properties := gopter.NewProperties(nil)

	properties.Property("a correctly signed payment verifies", prop.ForAll(
		func(orderID, paymentID string) bool {
			return gw.VerifySignature(orderID, paymentID, Sign("secret", orderID, paymentID)) == nil
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("a signature for another payment is rejected", prop.ForAll(
		func(orderID, paymentID, otherPaymentID string) bool {
			if paymentID == otherPaymentID {
				return true
			}
			err := gw.VerifySignature(orderID, paymentID, Sign("secret", orderID, otherPaymentID))
			return err == ErrInvalidSignature
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("a signature made with another secret is rejected", prop.ForAll(
		func(orderID, paymentID string) bool {
			return gw.VerifySignature(orderID, paymentID, Sign("not-the-secret", orderID, paymentID)) == ErrInvalidSignature
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
