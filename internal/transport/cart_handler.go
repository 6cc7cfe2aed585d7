package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddItemRequest adds a product to the cart
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Size      string `json:"size" validate:"max=10"`
	Quantity  int    `json:"quantity" validate:"omitempty,gte=1,lte=99"`
}

// SetQuantityRequest overwrites the quantity of a row; zero removes it
type SetQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=99"`
}

// PincodeRequest sets the delivery destination; an empty pincode clears it
type PincodeRequest struct {
	Pincode string `json:"pincode" validate:"omitempty,pincode"`
}

// ShippingRequest selects a courier
type ShippingRequest struct {
	Option string `json:"option" validate:"required,oneof=standard express"`
}

// CartHandler serves the cart of the caller. Signed-in users get their
// account cart, guests the cart named by the X-Cart-ID header, and a new
// guest id is minted when there is none.
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers the cart routes behind optionalAuth
func (h *CartHandler) RegisterRoutes(r chi.Router, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{itemID}", h.SetQuantity)
		r.Post("/items/{itemID}/decrement", h.Decrement)
		r.Delete("/items/{itemID}", h.RemoveItem)
		r.Put("/pincode", h.SetPincode)
		r.Put("/shipping", h.SelectShipping)
	})
}

// cartID picks the cart for the request and echoes it in the response header
func (h *CartHandler) cartID(w http.ResponseWriter, r *http.Request) string {
	var id string
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		id = service.UserCartID(userID)
	} else if header := r.Header.Get(middleware.CartIDHeader); service.ValidCartID(header) {
		id = header
	} else {
		id = service.GuestCartID()
		h.logger.Debug("Guest cart created", zap.String("cart_id", id))
	}
	w.Header().Set(middleware.CartIDHeader, id)
	return id
}

func (h *CartHandler) respond(w http.ResponseWriter, view *service.CartView, err error) {
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to update cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// GetCart returns the cart with its price breakdown
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.cartService.Get(r.Context(), h.cartID(w, r))
	h.respond(w, view, err)
}

// AddItem adds a product, merging with an existing row of the same size
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID := h.cartID(w, r)

	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := h.cartService.Add(r.Context(), cartID, uuid.MustParse(req.ProductID), req.Size, req.Quantity)
	h.respond(w, view, err)
}

// SetQuantity overwrites a row's quantity
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	cartID := h.cartID(w, r)

	var req SetQuantityRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	view, err := h.cartService.SetQuantity(r.Context(), cartID, chi.URLParam(r, "itemID"), req.Quantity)
	h.respond(w, view, err)
}

// Decrement takes one unit off a row
func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	view, err := h.cartService.Decrement(r.Context(), h.cartID(w, r), chi.URLParam(r, "itemID"))
	h.respond(w, view, err)
}

// RemoveItem drops a row
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.cartService.Remove(r.Context(), h.cartID(w, r), chi.URLParam(r, "itemID"))
	h.respond(w, view, err)
}

// ClearCart empties the cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cartService.Clear(r.Context(), h.cartID(w, r)); err != nil {
		respondWithServiceError(w, h.logger, err, "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPincode sets the delivery pincode, resetting the selected courier
func (h *CartHandler) SetPincode(w http.ResponseWriter, r *http.Request) {
	cartID := h.cartID(w, r)

	var req PincodeRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	view, err := h.cartService.SetPincode(r.Context(), cartID, req.Pincode)
	h.respond(w, view, err)
}

// SelectShipping picks a courier offered for the cart's destination
func (h *CartHandler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	cartID := h.cartID(w, r)

	var req ShippingRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	view, err := h.cartService.SelectShipping(r.Context(), cartID, req.Option)
	h.respond(w, view, err)
}
