// Package vault stores arbitrary per-user named values (authenticator secrets,
// recovery codes, SMS codes, third-party provider tokens) without dedicated schemas.
package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
)

// InternalProvider namespaces values owned by the credential store itself. External
// login providers never use it, so second-factor data cannot collide with OAuth tokens.
const InternalProvider = "[IdentityUserStore]"

// ErrReservedProvider is returned when an external caller tries to write into InternalProvider.
var ErrReservedProvider = errors.New("provider name is reserved")

// TokenVault wraps the token collection with upsert/get/remove semantics.
type TokenVault struct {
	tokens repository.TokenRepository
}

// New creates a TokenVault over the given repository.
func New(tokens repository.TokenRepository) *TokenVault {
	return &TokenVault{tokens: tokens}
}

// SetToken inserts or replaces the value stored under (userID, provider, name).
func (v *TokenVault) SetToken(ctx context.Context, userID model.ID, provider, name, value string) error {
	if err := v.tokens.SetToken(ctx, userID, provider, name, value); err != nil {
		return fmt.Errorf("set %s/%s token: %w", provider, name, err)
	}

	return nil
}

// SetProviderToken is SetToken for external providers. It refuses InternalProvider.
func (v *TokenVault) SetProviderToken(ctx context.Context, userID model.ID, provider, name, value string) error {
	if provider == InternalProvider {
		return ErrReservedProvider
	}

	return v.SetToken(ctx, userID, provider, name, value)
}

// GetToken returns the stored value and whether it exists.
func (v *TokenVault) GetToken(ctx context.Context, userID model.ID, provider, name string) (string, bool, error) {
	value, err := v.tokens.GetToken(ctx, userID, provider, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s/%s token: %w", provider, name, err)
	}

	return value, true, nil
}

// RemoveToken deletes the value. Removing an absent value is not an error.
func (v *TokenVault) RemoveToken(ctx context.Context, userID model.ID, provider, name string) error {
	if err := v.tokens.RemoveToken(ctx, userID, provider, name); err != nil {
		return fmt.Errorf("remove %s/%s token: %w", provider, name, err)
	}

	return nil
}

// CompareAndSwap replaces the value only if it still equals current.
func (v *TokenVault) CompareAndSwap(
	ctx context.Context,
	userID model.ID,
	provider, name, current, next string,
) (bool, error) {
	swapped, err := v.tokens.CompareAndSwapToken(ctx, userID, provider, name, current, next)
	if err != nil {
		return false, fmt.Errorf("swap %s/%s token: %w", provider, name, err)
	}

	return swapped, nil
}
