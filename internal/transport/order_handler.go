package transport

import (
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderHandler serves the caller's order history
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers the order history route
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Get("/api/orders", h.ListMyOrders)
}

// ListMyOrders returns the orders placed with the caller's email, newest first
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.GetUserEmail(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "token carries no email, sign in again")
		return
	}

	orders, err := h.orderService.ListForCustomer(r.Context(), email)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to load orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// ListAllOrders is the admin view of every order
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	orders, err := h.orderService.List(r.Context(), page, pageSize)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to load orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}
