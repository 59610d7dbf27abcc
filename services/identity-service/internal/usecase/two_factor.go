package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/twofactor"
)

// TwoFactorUsecase provisions and removes second factors for a signed-in user.
type TwoFactorUsecase struct {
	logger            *zerolog.Logger
	users             *UserManager
	authenticator     *twofactor.Authenticator
	recovery          *twofactor.RecoveryCodes
	recoveryCodeCount int
}

func NewTwoFactorUsecase(
	logger *zerolog.Logger,
	users *UserManager,
	authenticator *twofactor.Authenticator,
	recovery *twofactor.RecoveryCodes,
	recoveryCodeCount int,
) *TwoFactorUsecase {
	if recoveryCodeCount <= 0 {
		recoveryCodeCount = 10
	}

	return &TwoFactorUsecase{
		logger:            logger,
		users:             users,
		authenticator:     authenticator,
		recovery:          recovery,
		recoveryCodeCount: recoveryCodeCount,
	}
}

// ResetAuthenticatorKey replaces the authenticator key and returns its otpauth:// URI.
// Existing sessions are invalidated through the security stamp.
func (u *TwoFactorUsecase) ResetAuthenticatorKey(ctx context.Context, user *model.User) (string, error) {
	account := user.Email
	if account == "" {
		account = user.UserName
	}

	_, uri, err := u.authenticator.ResetKey(ctx, user.ID, account)
	if err != nil {
		return "", err
	}

	if err := u.users.UpdateSecurityStamp(ctx, user); err != nil {
		return "", err
	}

	return uri, nil
}

// EnableTwoFactor turns two factor on once code proves the authenticator is set up.
// It returns fresh recovery codes when the user has none left.
func (u *TwoFactorUsecase) EnableTwoFactor(ctx context.Context, user *model.User, code string) ([]string, error) {
	ok, err := u.authenticator.Verify(ctx, user.ID, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newFieldError("Code", "totp", ErrInvalidTwoFactorCode)
	}

	if err := u.users.SetTwoFactorEnabled(ctx, user, true); err != nil {
		return nil, err
	}

	u.logger.Info().Str("user_id", user.ID.Hex()).Msg("two factor enabled")

	remaining, err := u.recovery.Count(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if remaining > 0 {
		return nil, nil
	}

	return u.recovery.Generate(ctx, user.ID, u.recoveryCodeCount)
}

// DisableTwoFactor turns two factor off and discards the key and recovery codes.
func (u *TwoFactorUsecase) DisableTwoFactor(ctx context.Context, user *model.User) error {
	if err := u.users.SetTwoFactorEnabled(ctx, user, false); err != nil {
		return err
	}
	if err := u.authenticator.RemoveKey(ctx, user.ID); err != nil {
		return err
	}
	if err := u.recovery.Clear(ctx, user.ID); err != nil {
		return err
	}

	u.logger.Info().Str("user_id", user.ID.Hex()).Msg("two factor disabled")

	return nil
}

// GenerateRecoveryCodes replaces the user's recovery codes.
func (u *TwoFactorUsecase) GenerateRecoveryCodes(ctx context.Context, user *model.User) ([]string, error) {
	if !user.TwoFactorEnabled {
		return nil, ErrTwoFactorNotEnabled
	}

	return u.recovery.Generate(ctx, user.ID, u.recoveryCodeCount)
}

func (u *TwoFactorUsecase) CountRecoveryCodes(ctx context.Context, user *model.User) (int, error) {
	return u.recovery.Count(ctx, user.ID)
}
