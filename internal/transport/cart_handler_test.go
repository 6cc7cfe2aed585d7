package transport

import (
	"net/http"
	"testing"

	"storefront/internal/middleware"
	"storefront/internal/pricing"
	"storefront/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartMintsAndEchoesGuestID(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/cart/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	first := w.Header().Get(middleware.CartIDHeader)
	assert.True(t, service.ValidCartID(first))

	w = env.do(http.MethodGet, "/api/cart/", nil, withCart(first))
	assert.Equal(t, first, w.Header().Get(middleware.CartIDHeader))

	// a forged id is replaced, never trusted
	w = env.do(http.MethodGet, "/api/cart/", nil, withCart("user-not-a-uuid"))
	replaced := w.Header().Get(middleware.CartIDHeader)
	assert.NotEqual(t, "user-not-a-uuid", replaced)
	assert.True(t, service.ValidCartID(replaced))
}

func TestCartSignedInUsesAccountCart(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "asha@example.com", "user")

	guest := service.GuestCartID()
	w := env.do(http.MethodGet, "/api/cart/", nil, withToken(token), withCart(guest))
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(middleware.CartIDHeader)
	assert.NotEqual(t, guest, id)
	assert.Regexp(t, `^user-`, id)
}

func TestCartBundleCheckoutFlow(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct("Titanic Nighty", "Nighties", 399, "M", "L")
	cartID := service.GuestCartID()

	w := env.do(http.MethodPost, "/api/cart/items", AddItemRequest{ProductID: product.ID.String(), Size: "L", Quantity: 4}, withCart(cartID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPut, "/api/cart/pincode", PincodeRequest{Pincode: "600001"}, withCart(cartID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPut, "/api/cart/shipping", ShippingRequest{Option: pricing.ShippingStandard}, withCart(cartID))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view service.CartView
	decodeBody(t, w, &view)
	assert.Equal(t, 4, view.ItemCount)
	assert.True(t, view.Quote.Subtotal.Equal(decimal.NewFromInt(1596)))
	assert.True(t, view.Quote.BundleDiscount.Equal(decimal.NewFromInt(597)))
	assert.True(t, view.Quote.ShippingFee.Equal(decimal.NewFromInt(60)))
	assert.True(t, view.Quote.FinalTotal.Equal(decimal.NewFromInt(1059)))

	itemID := view.Items[0].ID
	w = env.do(http.MethodPost, "/api/cart/items/"+itemID+"/decrement", nil, withCart(cartID))
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &view)
	assert.Equal(t, 3, view.ItemCount)
	assert.True(t, view.Quote.BundleDiscount.IsZero())

	w = env.do(http.MethodPut, "/api/cart/items/"+itemID, SetQuantityRequest{Quantity: 0}, withCart(cartID))
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &view)
	assert.Zero(t, view.ItemCount)
}

func TestCartRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct("Zip Nighty", "Nighties", 399, "L")
	cartID := service.GuestCartID()

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{"malformed product id", http.MethodPost, "/api/cart/items", map[string]interface{}{"product_id": "abc"}, http.StatusBadRequest},
		{"unknown product", http.MethodPost, "/api/cart/items", AddItemRequest{ProductID: "7f1a2b3c-0000-4000-8000-000000000000", Size: "L"}, http.StatusNotFound},
		{"size not offered", http.MethodPost, "/api/cart/items", AddItemRequest{ProductID: product.ID.String(), Size: "XS"}, http.StatusBadRequest},
		{"short pincode", http.MethodPut, "/api/cart/pincode", PincodeRequest{Pincode: "6000"}, http.StatusBadRequest},
		{"unknown courier", http.MethodPut, "/api/cart/shipping", ShippingRequest{Option: "drone"}, http.StatusBadRequest},
		{"shipping before pincode", http.MethodPut, "/api/cart/shipping", ShippingRequest{Option: "standard"}, http.StatusBadRequest},
		{"missing row", http.MethodDelete, "/api/cart/items/nope", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.method, tt.path, tt.body, withCart(cartID))
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestClearCart(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct("Frock Nighty", "Nighties", 449, "L")
	cartID := service.GuestCartID()

	env.do(http.MethodPost, "/api/cart/items", AddItemRequest{ProductID: product.ID.String(), Size: "L"}, withCart(cartID))
	w := env.do(http.MethodDelete, "/api/cart/", nil, withCart(cartID))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, "/api/cart/", nil, withCart(cartID))
	var view service.CartView
	decodeBody(t, w, &view)
	assert.Zero(t, view.ItemCount)
}

func TestCartRowQuantityIsCapped(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct("Zip Nighty", "Nighties", 399, "L")
	add := AddItemRequest{ProductID: product.ID.String(), Size: "L", Quantity: 60}

	w := env.do(http.MethodPost, "/api/cart/items", add)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cartID := w.Header().Get(middleware.CartIDHeader)

	w = env.do(http.MethodPost, "/api/cart/items", add, withCart(cartID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cannot exceed 99")
}
