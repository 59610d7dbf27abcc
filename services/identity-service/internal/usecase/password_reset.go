package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/vault"
	"github.com/vasapolrittideah/identity-api/shared/auth"
)

const (
	passwordResetPurpose   = "password_reset"
	passwordResetTokenName = "ResetPassword"
	passwordResetTemplate  = "Password_Reset"
)

var (
	ErrInvalidResetToken = errors.New("invalid password reset token")
	ErrResetTokenUsed    = errors.New("password reset token has already been used")
	ErrResetTokenExpired = errors.New("password reset token has expired")
)

type passwordResetClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// PasswordResetUsecase defines the business logic for resetting a forgotten password.
type PasswordResetUsecase interface {
	// RequestPasswordReset emails a reset link. Unknown or unconfirmed addresses succeed silently.
	RequestPasswordReset(ctx context.Context, email string) error

	// ValidatePasswordResetToken checks that the token is valid and unused.
	ValidatePasswordResetToken(ctx context.Context, token string) error

	// ResetPassword consumes the token and sets the new password.
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type passwordResetUsecase struct {
	logger     *zerolog.Logger
	users      *UserManager
	vault      *vault.TokenVault
	jwtAuth    auth.JWTAuthenticator
	dispatcher MessageDispatcher
	resetURL   string
	ttl        time.Duration
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase. Links point
// at authority + "/Account/ResetPassword".
func NewPasswordResetUsecase(
	logger *zerolog.Logger,
	users *UserManager,
	tokenVault *vault.TokenVault,
	jwtAuth auth.JWTAuthenticator,
	dispatcher MessageDispatcher,
	authority string,
	ttl time.Duration,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		logger:     logger,
		users:      users,
		vault:      tokenVault,
		jwtAuth:    jwtAuth,
		dispatcher: dispatcher,
		resetURL:   authority + "/Account/ResetPassword",
		ttl:        ttl,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if !user.EmailConfirmed {
		return nil
	}

	jti, err := generateJTI()
	if err != nil {
		return err
	}

	// Storing the jti invalidates any link sent earlier.
	if err := u.vault.SetToken(ctx, user.ID, vault.InternalProvider, passwordResetTokenName, jti); err != nil {
		return err
	}

	claims := passwordResetClaims{
		Purpose:          passwordResetPurpose,
		RegisteredClaims: u.jwtAuth.RegisteredClaims(user.ID.Hex(), time.Now(), u.ttl),
	}
	claims.ID = jti

	token, err := u.jwtAuth.GenerateToken(claims)
	if err != nil {
		return err
	}

	link := u.resetURL + "?code=" + url.QueryEscape(token)
	if err := u.dispatcher.SendEmailUsingTemplate(ctx, user.Email, passwordResetTemplate, map[string]string{
		"Link": link,
	}); err != nil {
		u.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to dispatch password reset email")
	}

	return nil
}

func (u *passwordResetUsecase) ValidatePasswordResetToken(ctx context.Context, token string) error {
	_, _, err := u.resolve(ctx, token)
	return err
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, token, newPassword string) error {
	user, jti, err := u.resolve(ctx, token)
	if err != nil {
		return err
	}

	// A rejected password leaves the token usable.
	hash, err := u.users.hashPassword(ctx, newPassword)
	if err != nil {
		return err
	}

	swapped, err := u.vault.CompareAndSwap(ctx, user.ID, vault.InternalProvider, passwordResetTokenName, jti, "")
	if err != nil {
		return err
	}
	if !swapped {
		return ErrResetTokenUsed
	}

	if err := u.users.setPasswordHash(ctx, user, hash); err != nil {
		// Give the token back unless a newer request replaced it meanwhile.
		if _, restoreErr := u.vault.CompareAndSwap(
			ctx, user.ID, vault.InternalProvider, passwordResetTokenName, "", jti,
		); restoreErr != nil {
			u.logger.Warn().Err(restoreErr).Str("user_id", user.ID.Hex()).Msg("failed to restore password reset token")
		}
		return err
	}

	u.logger.Info().Str("user_id", user.ID.Hex()).Msg("password reset")

	return nil
}

// resolve validates the token and checks that it is the latest one issued and unused.
func (u *passwordResetUsecase) resolve(ctx context.Context, token string) (*model.User, string, error) {
	var claims passwordResetClaims
	if _, err := u.jwtAuth.ValidateTokenWithClaims(token, &claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, "", ErrResetTokenExpired
		}
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidResetToken, err)
	}
	if claims.Purpose != passwordResetPurpose || claims.ID == "" {
		return nil, "", ErrInvalidResetToken
	}

	id, err := model.ParseID(claims.Subject)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidResetToken, err)
	}

	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidResetToken
		}
		return nil, "", err
	}

	current, ok, err := u.vault.GetToken(ctx, user.ID, vault.InternalProvider, passwordResetTokenName)
	if err != nil {
		return nil, "", err
	}
	if !ok || current != claims.ID {
		return nil, "", ErrResetTokenUsed
	}

	return user, claims.ID, nil
}

// generateJTI generates a unique JTI.
func generateJTI() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
