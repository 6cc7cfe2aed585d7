package service

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

var (
	ErrInvalidGoogleToken   = errors.New("invalid google id token")
	ErrGoogleSignInDisabled = errors.New("google sign-in is not configured")
)

// GoogleIdentity is the verified subset of a Google ID token
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
}

// IDTokenVerifier checks an ID token issued to the storefront's OAuth client
type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

type googleVerifier struct {
	validator *idtoken.Validator
	clientID  string
}

// NewGoogleVerifier validates tokens against Google's published certificates.
// The audience must equal clientID.
func NewGoogleVerifier(ctx context.Context, clientID string) (IDTokenVerifier, error) {
	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create id token validator: %w", err)
	}
	return &googleVerifier{validator: validator, clientID: clientID}, nil
}

func (v *googleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	payload, err := v.validator.Validate(ctx, idToken, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoogleToken, err)
	}
	return identityFromClaims(payload.Subject, payload.Claims), nil
}

func identityFromClaims(subject string, claims map[string]interface{}) *GoogleIdentity {
	identity := &GoogleIdentity{Subject: subject}
	identity.Email, _ = claims["email"].(string)
	identity.FirstName, _ = claims["given_name"].(string)
	identity.LastName, _ = claims["family_name"].(string)
	// older tokens carry the flag as a string
	switch verified := claims["email_verified"].(type) {
	case bool:
		identity.EmailVerified = verified
	case string:
		identity.EmailVerified = verified == "true"
	}
	return identity
}
