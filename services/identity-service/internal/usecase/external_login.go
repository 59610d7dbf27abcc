package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/vault"
)

const externalTokenName = "id_token"

// ExternalLoginUsecase signs users in with identities vouched for by external providers.
type ExternalLoginUsecase struct {
	logger    *zerolog.Logger
	signIn    *SignInUsecase
	vault     *vault.TokenVault
	providers map[string]IdentityProvider
}

func NewExternalLoginUsecase(
	logger *zerolog.Logger,
	signIn *SignInUsecase,
	tokenVault *vault.TokenVault,
	providers ...IdentityProvider,
) *ExternalLoginUsecase {
	byName := make(map[string]IdentityProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	return &ExternalLoginUsecase{
		logger:    logger,
		signIn:    signIn,
		vault:     tokenVault,
		providers: byName,
	}
}

// SignIn validates idToken with the provider and continues like a password sign-in that
// passed the password check.
func (u *ExternalLoginUsecase) SignIn(ctx context.Context, providerName, idToken string) (*SignInResult, error) {
	p, ok := u.providers[providerName]
	if !ok {
		return nil, newFieldError("Provider", "oneof", ErrUnknownProvider)
	}

	identity, err := p.ValidateIDToken(ctx, idToken)
	if err != nil {
		u.logger.Info().Err(err).Str("provider", providerName).Msg("external token rejected")
		return u.signIn.failed(nil, model.ReasonUnknown, false), nil
	}

	user, err := u.signIn.users.FindByLogin(ctx, providerName, identity.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return &SignInResult{Status: StatusNotLinked}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := u.vault.SetProviderToken(ctx, user.ID, providerName, externalTokenName, idToken); err != nil {
		return nil, err
	}

	if u.signIn.users.IsLockedOut(user) {
		return u.signIn.fail(ctx, user, model.ReasonLockedOut, true)
	}

	return u.signIn.afterPrimaryFactor(ctx, user, false)
}

// Link attaches the external identity behind idToken to user.
func (u *ExternalLoginUsecase) Link(ctx context.Context, user *model.User, providerName, idToken string) error {
	p, ok := u.providers[providerName]
	if !ok {
		return newFieldError("Provider", "oneof", ErrUnknownProvider)
	}

	identity, err := p.ValidateIDToken(ctx, idToken)
	if err != nil {
		return fmt.Errorf("validate %s token: %w", providerName, err)
	}

	return u.signIn.users.AddLogin(ctx, user, model.LoginInfo{
		Provider:    providerName,
		ProviderKey: identity.Subject,
		DisplayName: providerName,
	})
}
