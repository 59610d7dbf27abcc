package provider

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const GoogleProvider = "Google"

var (
	ErrInvalidGoogleAudience = errors.New("invalid google audience")
	ErrMissingSubject        = errors.New("id token has no subject")
)

// ExternalIdentity is what an external provider vouches for after validating a token.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
}

// GoogleOAuthProvider validates Google ID tokens through the tokeninfo endpoint.
type GoogleOAuthProvider struct {
	clientID string
	service  *oauth2.Service
}

// NewGoogleOAuthProvider creates a validator accepting tokens issued to clientID.
func NewGoogleOAuthProvider(ctx context.Context, clientID string, opts ...option.ClientOption) (*GoogleOAuthProvider, error) {
	service, err := oauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create google oauth2 service: %w", err)
	}

	return &GoogleOAuthProvider{clientID: clientID, service: service}, nil
}

func (p *GoogleOAuthProvider) Name() string {
	return GoogleProvider
}

// ValidateIDToken checks idToken with Google and that it was issued for this client.
func (p *GoogleOAuthProvider) ValidateIDToken(ctx context.Context, idToken string) (*ExternalIdentity, error) {
	tokenInfo, err := p.service.Tokeninfo().IdToken(idToken).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	if tokenInfo.Audience != p.clientID {
		return nil, ErrInvalidGoogleAudience
	}
	if tokenInfo.UserId == "" {
		return nil, ErrMissingSubject
	}

	return &ExternalIdentity{
		Provider:      GoogleProvider,
		Subject:       tokenInfo.UserId,
		Email:         tokenInfo.Email,
		EmailVerified: tokenInfo.VerifiedEmail,
	}, nil
}
