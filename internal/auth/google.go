package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

var ErrIdentityDisabled = errors.New("identity-provider sign-in is not configured")

// IdentityVerifier turns an identity-provider token into a verified email.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// GoogleVerifier checks Google ID tokens issued for clientID.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (string, error) {
	if g == nil || g.clientID == "" {
		return "", ErrIdentityDisabled
	}
	if token == "" {
		return "", fmt.Errorf("%w: empty id token", ErrInvalidToken)
	}

	payload, err := g.validate(ctx, token, g.clientID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("%w: id token has no email", ErrInvalidToken)
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return "", fmt.Errorf("%w: email not verified", ErrInvalidToken)
	}

	return email, nil
}
