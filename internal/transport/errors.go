package transport

import (
	"errors"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/storage"

	"go.uber.org/zap"
)

// statusFor maps the sentinel errors of the service layer to a status code
// and a message safe to show to the client
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, domain.ErrCartItemNotFound):
		return http.StatusNotFound, "item is not in the cart"
	case errors.Is(err, repository.ErrCheckoutSessionNotFound):
		return http.StatusNotFound, "checkout session not found or expired"
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, "user not found"

	case errors.Is(err, repository.ErrUserAlreadyExists):
		return http.StatusConflict, "user with this email already exists"
	case errors.Is(err, repository.ErrCartConflict):
		return http.StatusConflict, "cart was modified concurrently, retry"

	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid refresh token"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "refresh token expired"
	case errors.Is(err, service.ErrInvalidGoogleToken):
		return http.StatusUnauthorized, "google sign-in failed"
	case errors.Is(err, payment.ErrInvalidSignature):
		return http.StatusUnauthorized, "payment signature verification failed"

	case errors.Is(err, service.ErrGoogleSignInDisabled):
		return http.StatusNotImplemented, "google sign-in is not available"
	case errors.Is(err, service.ErrGatewayUnavailable):
		return http.StatusBadGateway, "payment gateway unavailable, try again"
	case errors.Is(err, service.ErrOrderNotRecorded):
		return http.StatusInternalServerError, "payment received but the order could not be recorded; contact the store"
	case errors.Is(err, storage.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()

	case errors.Is(err, service.ErrInvalidCartID),
		errors.Is(err, service.ErrCartEmpty),
		errors.Is(err, service.ErrInvalidProduct),
		errors.Is(err, service.ErrInvalidReview),
		errors.Is(err, service.ErrInvalidSpreadsheet),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrQuantityLimit),
		errors.Is(err, domain.ErrInvalidSize),
		errors.Is(err, pricing.ErrInvalidPincode),
		errors.Is(err, pricing.ErrShippingNotAvailable),
		errors.Is(err, pricing.ErrShippingNotSelected),
		errors.Is(err, pricing.ErrDestinationNotSet),
		errors.Is(err, storage.ErrUnsupportedImage),
		errors.Is(err, storage.ErrEmptyImage):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, ""
}

// respondWithServiceError writes err as the error envelope. Unknown errors
// are logged and answered with fallback.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError && message == "" {
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, status, fallback)
		return
	}
	if status >= http.StatusInternalServerError {
		logger.Error(message, zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	middleware.RespondWithError(w, status, message)
}
