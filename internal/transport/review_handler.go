package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateReviewRequest is the review form
type CreateReviewRequest struct {
	UserName string `json:"user_name" validate:"required,max=100"`
	Rating   int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment  string `json:"comment" validate:"max=2000"`
}

// ReviewHandler handles product reviews
type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService service.ReviewService, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger,
	}
}

// RegisterRoutes registers the review routes. Writes go through rateLimit.
func (h *ReviewHandler) RegisterRoutes(r chi.Router, rateLimit func(http.Handler) http.Handler) {
	r.Get("/api/products/{id}/reviews", h.ListReviews)
	r.With(rateLimit).Post("/api/products/{id}/reviews", h.CreateReview)
}

// ListReviews returns a product's reviews, newest first, with the average rating
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	list, err := h.reviewService.List(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to load reviews")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, list)
}

// CreateReview appends a review
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	review, err := h.reviewService.Create(r.Context(), productID, req.UserName, req.Rating, req.Comment)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "failed to save review")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, review)
}
