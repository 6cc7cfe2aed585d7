package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutRequest is the checkout form
type CheckoutRequest struct {
	Address        string `json:"address" validate:"required,min=10,max=500"`
	Pincode        string `json:"pincode" validate:"required,pincode"`
	ShippingOption string `json:"shipping_option" validate:"required,oneof=standard express"`
}

// ConfirmPaymentRequest is the payload the gateway widget hands back on success
type ConfirmPaymentRequest struct {
	GatewayOrderID string `json:"gateway_order_id" validate:"required"`
	PaymentID      string `json:"payment_id" validate:"required"`
	Signature      string `json:"signature" validate:"required,hexadecimal"`
}

// CheckoutHandler hands the caller's cart to the payment gateway
type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers the checkout routes; both need a signed-in user
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/checkout", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.StartCheckout)
		r.Post("/confirm", h.ConfirmPayment)
	})
}

// StartCheckout prices the cart and mints a gateway order for it
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	email, ok := middleware.GetUserEmail(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "token carries no email, sign in again")
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	start, err := h.checkoutService.Start(r.Context(), service.CheckoutRequest{
		CartID:         service.UserCartID(userID),
		CustomerEmail:  email,
		Address:        req.Address,
		Pincode:        req.Pincode,
		ShippingOption: req.ShippingOption,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to start checkout")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, start)
}

// ConfirmPayment verifies the gateway callback and records the order
func (h *CheckoutHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.GetUserEmail(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "token carries no email, sign in again")
		return
	}

	var req ConfirmPaymentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	confirmation, err := h.checkoutService.Confirm(r.Context(), service.ConfirmRequest{
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
		CustomerEmail:  email,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to confirm payment")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, confirmation)
}
