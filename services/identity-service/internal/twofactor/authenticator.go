package twofactor

import (
	"context"
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/vault"
)

// AuthenticatorConfig holds TOTP parameters shared by provisioning and verification.
type AuthenticatorConfig struct {
	Issuer string
	Period uint
	Skew   uint
	Digits otp.Digits
}

// Authenticator stores authenticator keys and verifies TOTP codes against them.
type Authenticator struct {
	vault *vault.TokenVault
	cfg   AuthenticatorConfig
	now   func() time.Time
}

// NewAuthenticator creates an Authenticator. Zero config fields take RFC 6238 defaults.
func NewAuthenticator(v *vault.TokenVault, cfg AuthenticatorConfig) *Authenticator {
	if cfg.Period == 0 {
		cfg.Period = 30
	}
	if cfg.Digits == 0 {
		cfg.Digits = otp.DigitsSix
	}

	return &Authenticator{vault: v, cfg: cfg, now: time.Now}
}

// SetKey stores the user's authenticator key.
func (a *Authenticator) SetKey(ctx context.Context, userID model.ID, key string) error {
	return a.vault.SetToken(ctx, userID, vault.InternalProvider, authenticatorKeyName, key)
}

// GetKey returns the user's authenticator key, if any.
func (a *Authenticator) GetKey(ctx context.Context, userID model.ID) (string, bool, error) {
	return a.vault.GetToken(ctx, userID, vault.InternalProvider, authenticatorKeyName)
}

// RemoveKey deletes the user's authenticator key.
func (a *Authenticator) RemoveKey(ctx context.Context, userID model.ID) error {
	return a.vault.RemoveToken(ctx, userID, vault.InternalProvider, authenticatorKeyName)
}

// ResetKey generates and stores a new key. It returns the base32 secret and the otpauth:// URI.
func (a *Authenticator) ResetKey(ctx context.Context, userID model.ID, accountName string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.cfg.Issuer,
		AccountName: accountName,
		Period:      a.cfg.Period,
		Digits:      a.cfg.Digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}

	if err := a.SetKey(ctx, userID, key.Secret()); err != nil {
		return "", "", err
	}

	return key.Secret(), key.URL(), nil
}

// Verify checks a code against the stored key. A user without a key never verifies.
func (a *Authenticator) Verify(ctx context.Context, userID model.ID, code string) (bool, error) {
	key, ok, err := a.GetKey(ctx, userID)
	if err != nil || !ok {
		return false, err
	}

	valid, err := totp.ValidateCustom(NormalizeCode(code), key, a.now(), totp.ValidateOpts{
		Period:    a.cfg.Period,
		Skew:      a.cfg.Skew,
		Digits:    a.cfg.Digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if errors.Is(err, otp.ErrValidateInputInvalidLength) {
		return false, nil
	}

	return valid, err
}
