package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
	"github.com/vasapolrittideah/identity-api/shared/security"
)

const conflictRetryDelay = 10 * time.Millisecond

// LockoutOptions configures failed-password accounting.
type LockoutOptions struct {
	EnabledForNewUsers bool
	MaxFailedAttempts  int
	Duration           time.Duration
	// ConflictRetries bounds how often bookkeeping writes re-read and retry after a
	// concurrency conflict.
	ConflictRetries uint64
}

// CreateUserParams defines the parameters for registering a user.
type CreateUserParams struct {
	UserName       string `validate:"required,max=256"`
	Email          string `validate:"omitempty,email"`
	Password       string `validate:"omitempty,min=8,max=128"`
	PhoneNumber    string `validate:"omitempty,e164"`
	EmailConfirmed bool
	FirstName      string `validate:"max=100"`
	LastName       string `validate:"max=100"`
	Language       string `validate:"omitempty,bcp47_language_tag"`
}

type emailParams struct {
	Email string `validate:"required,email"`
}

type phoneNumberParams struct {
	PhoneNumber string `validate:"omitempty,e164"`
}

type passwordParams struct {
	Password string `validate:"required,min=8,max=128"`
}

// UserManager owns every mutation of a user record. Each mutator applies its change and
// writes the full record through the repository's compare-and-swap Update.
type UserManager struct {
	logger   *zerolog.Logger
	users    repository.UserRepository
	claims   repository.ClaimRepository
	logins   repository.LoginRepository
	roles    repository.RoleRepository
	validate *validator.Validate
	trans    ut.Translator
	lockout  LockoutOptions
	now      func() time.Time
}

func NewUserManager(
	logger *zerolog.Logger,
	store repository.CredentialStore,
	validate *validator.Validate,
	trans ut.Translator,
	lockout LockoutOptions,
) *UserManager {
	return &UserManager{
		logger:   logger,
		users:    store,
		claims:   store,
		logins:   store,
		roles:    store,
		validate: validate,
		trans:    trans,
		lockout:  lockout,
		now:      time.Now,
	}
}

func (m *UserManager) Create(ctx context.Context, params CreateUserParams) (*model.User, error) {
	if err := m.validate.StructCtx(ctx, params); err != nil {
		return nil, validationError(err, m.trans)
	}

	now := m.now().UTC()
	user := &model.User{
		UserName:           params.UserName,
		NormalizedUserName: model.Normalize(params.UserName),
		Email:              params.Email,
		NormalizedEmail:    model.Normalize(params.Email),
		EmailConfirmed:     params.EmailConfirmed,
		PhoneNumber:        params.PhoneNumber,
		SecurityStamp:      uuid.NewString(),
		LockoutEnabled:     m.lockout.EnabledForNewUsers,
		FirstName:          params.FirstName,
		LastName:           params.LastName,
		Language:           params.Language,
		CreatedOn:          now,
	}

	if params.Password != "" {
		hash, err := security.HashPassword(params.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		user.LastPasswordChangedDate = &now
	}

	if err := m.users.Create(ctx, user); err != nil {
		return nil, err
	}

	m.logger.Info().Str("user_id", user.ID.Hex()).Msg("user created")

	return user, nil
}

func (m *UserManager) Delete(ctx context.Context, user *model.User) error {
	return m.users.Delete(ctx, user.ID)
}

func (m *UserManager) FindByID(ctx context.Context, id model.ID) (*model.User, error) {
	return m.users.FindByID(ctx, id)
}

func (m *UserManager) FindByName(ctx context.Context, userName string) (*model.User, error) {
	return m.users.FindByNormalizedUserName(ctx, model.Normalize(userName))
}

func (m *UserManager) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.users.FindByNormalizedEmail(ctx, model.Normalize(email))
}

// FindByUserNameOrEmail tries the user name first, then the email.
func (m *UserManager) FindByUserNameOrEmail(ctx context.Context, userNameOrEmail string) (*model.User, error) {
	user, err := m.FindByName(ctx, userNameOrEmail)
	if errors.Is(err, repository.ErrNotFound) {
		return m.FindByEmail(ctx, userNameOrEmail)
	}

	return user, err
}

// update applies change to a copy of user and writes it. user is only updated once the
// write succeeds; a concurrency conflict is returned to the caller.
func (m *UserManager) update(ctx context.Context, user *model.User, change func(u *model.User)) error {
	next := user.Clone()
	change(next)

	if err := m.users.Update(ctx, next); err != nil {
		return err
	}
	*user = *next

	return nil
}

// updateWithRetry is update for writes that are safe to reapply (bookkeeping, password
// hashes): on a concurrency conflict it reloads the user and reapplies change, up to
// LockoutOptions.ConflictRetries times.
func (m *UserManager) updateWithRetry(ctx context.Context, user *model.User, change func(u *model.User)) error {
	backoff := retry.WithMaxRetries(m.lockout.ConflictRetries, retry.NewConstant(conflictRetryDelay))
	attempt := 0

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if attempt > 0 {
			fresh, err := m.users.FindByID(ctx, user.ID)
			if err != nil {
				return err
			}
			*user = *fresh
		}
		attempt++

		if err := m.update(ctx, user, change); err != nil {
			if errors.Is(err, repository.ErrConcurrencyConflict) {
				m.logger.Debug().Str("user_id", user.ID.Hex()).Int("attempt", attempt).Msg("retrying user update")
				return retry.RetryableError(err)
			}
			return err
		}

		return nil
	})
}

func (m *UserManager) UpdateSecurityStamp(ctx context.Context, user *model.User) error {
	return m.update(ctx, user, rotateSecurityStamp)
}

func (m *UserManager) SetEmail(ctx context.Context, user *model.User, email string) error {
	if err := m.validate.StructCtx(ctx, emailParams{Email: email}); err != nil {
		return validationError(err, m.trans)
	}

	return m.update(ctx, user, func(u *model.User) {
		u.Email = email
		u.NormalizedEmail = model.Normalize(email)
		u.EmailConfirmed = false
		rotateSecurityStamp(u)
	})
}

func (m *UserManager) ConfirmEmail(ctx context.Context, user *model.User) error {
	return m.update(ctx, user, func(u *model.User) { u.EmailConfirmed = true })
}

func (m *UserManager) SetPhoneNumber(ctx context.Context, user *model.User, phoneNumber string) error {
	if err := m.validate.StructCtx(ctx, phoneNumberParams{PhoneNumber: phoneNumber}); err != nil {
		return validationError(err, m.trans)
	}

	return m.update(ctx, user, func(u *model.User) {
		u.PhoneNumber = phoneNumber
		u.PhoneNumberConfirmed = false
		rotateSecurityStamp(u)
	})
}

func (m *UserManager) ConfirmPhoneNumber(ctx context.Context, user *model.User) error {
	return m.update(ctx, user, func(u *model.User) { u.PhoneNumberConfirmed = true })
}

func (m *UserManager) SetTwoFactorEnabled(ctx context.Context, user *model.User, enabled bool) error {
	return m.update(ctx, user, func(u *model.User) {
		u.TwoFactorEnabled = enabled
		rotateSecurityStamp(u)
	})
}

func (m *UserManager) SetLockoutEnabled(ctx context.Context, user *model.User, enabled bool) error {
	return m.update(ctx, user, func(u *model.User) { u.LockoutEnabled = enabled })
}

func (m *UserManager) SetLockoutEnd(ctx context.Context, user *model.User, end *time.Time) error {
	return m.update(ctx, user, func(u *model.User) { u.LockoutEnd = end })
}

func (m *UserManager) IsLockedOut(user *model.User) bool {
	return user.IsLockedOut(m.now())
}

// CheckPassword verifies password against the stored hash without side effects.
func (m *UserManager) CheckPassword(user *model.User, password string) (bool, error) {
	return security.VerifyPassword(password, user.PasswordHash)
}

// AccessFailed counts one failed attempt and records reason. Once the count reaches
// MaxFailedAttempts on a lockout-enabled account, the account is locked for Duration and
// the count is reset. The recorded reason stays reason. It reports whether the account
// is now locked.
func (m *UserManager) AccessFailed(ctx context.Context, user *model.User, reason model.FailedLoginReason) (bool, error) {
	return m.accessFailed(ctx, user, reason, reason)
}

// IncrementAccessFailedCount is AccessFailed for a wrong password. The attempt that locks
// the account records LockedOut.
func (m *UserManager) IncrementAccessFailedCount(ctx context.Context, user *model.User) (bool, error) {
	return m.accessFailed(ctx, user, model.ReasonUserNameOrPasswordInvalid, model.ReasonLockedOut)
}

func (m *UserManager) accessFailed(
	ctx context.Context,
	user *model.User,
	reason, lockedReason model.FailedLoginReason,
) (bool, error) {
	var locked bool

	err := m.updateWithRetry(ctx, user, func(u *model.User) {
		locked = false
		u.AccessFailedCount++
		u.LastFailedLoginReason = reason.Ptr()

		if u.LockoutEnabled && u.AccessFailedCount >= m.lockout.MaxFailedAttempts {
			end := m.now().UTC().Add(m.lockout.Duration)
			u.LockoutEnd = &end
			u.AccessFailedCount = 0
			u.LastFailedLoginReason = lockedReason.Ptr()
			locked = true
		}
	})
	if err != nil {
		return false, fmt.Errorf("record failed access: %w", err)
	}

	if locked {
		m.logger.Warn().Str("user_id", user.ID.Hex()).Time("lockout_end", *user.LockoutEnd).Msg("user locked out")
	}

	return locked, nil
}

func (m *UserManager) ResetAccessFailedCount(ctx context.Context, user *model.User) error {
	return m.update(ctx, user, func(u *model.User) { u.AccessFailedCount = 0 })
}

// RecordFailedLogin stores the reason of a failed sign-in without touching the failure count.
func (m *UserManager) RecordFailedLogin(ctx context.Context, user *model.User, reason model.FailedLoginReason) error {
	return m.updateWithRetry(ctx, user, func(u *model.User) {
		u.LastFailedLoginReason = reason.Ptr()
	})
}

// RecordSuccessfulLogin clears failure bookkeeping and counts the login.
func (m *UserManager) RecordSuccessfulLogin(ctx context.Context, user *model.User) error {
	now := m.now().UTC()

	return m.updateWithRetry(ctx, user, func(u *model.User) {
		u.LastLogin = &now
		u.LoginCount++
		u.LastFailedLoginReason = nil
		u.AccessFailedCount = 0
	})
}

// ChangePassword replaces the password after verifying the current one.
func (m *UserManager) ChangePassword(ctx context.Context, user *model.User, current, next string) error {
	ok, err := m.CheckPassword(user, current)
	if err != nil {
		return err
	}
	if !ok {
		return newFieldError("CurrentPassword", "password", ErrPasswordMismatch)
	}

	return m.ResetPassword(ctx, user, next)
}

// ResetPassword replaces the password without verifying the current one.
func (m *UserManager) ResetPassword(ctx context.Context, user *model.User, password string) error {
	hash, err := m.hashPassword(ctx, password)
	if err != nil {
		return err
	}

	return m.setPasswordHash(ctx, user, hash)
}

// hashPassword validates password and returns its hash.
func (m *UserManager) hashPassword(ctx context.Context, password string) (string, error) {
	if err := m.validate.StructCtx(ctx, passwordParams{Password: password}); err != nil {
		return "", validationError(err, m.trans)
	}

	return security.HashPassword(password)
}

// setPasswordHash stores an already validated hash, retrying on a concurrency conflict.
func (m *UserManager) setPasswordHash(ctx context.Context, user *model.User, hash string) error {
	now := m.now().UTC()

	return m.updateWithRetry(ctx, user, func(u *model.User) {
		u.PasswordHash = hash
		u.LastPasswordChangedDate = &now
		u.UserMustChangePassword = false
		rotateSecurityStamp(u)
	})
}

func rotateSecurityStamp(u *model.User) {
	u.SecurityStamp = uuid.NewString()
}
