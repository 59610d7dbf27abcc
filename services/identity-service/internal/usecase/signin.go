package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/i18n"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/limiter"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/twofactor"
)

// SignInStatus is the state a sign-in attempt ended in.
type SignInStatus string

const (
	StatusSucceeded         SignInStatus = "Succeeded"
	StatusTwoFactorRequired SignInStatus = "TwoFactorRequired"
	StatusFailed            SignInStatus = "Failed"
	// StatusNotLinked means an external identity was valid but belongs to no local user.
	StatusNotLinked SignInStatus = "NotLinked"
)

// SignInResult is the outcome of a sign-in step. Authentication failures are reported
// here, never as errors. LockedOut is set whenever the account is locked after the step,
// independently of Reason.
type SignInResult struct {
	Status         SignInStatus
	Reason         model.FailedLoginReason
	LockedOut      bool
	Message        string
	PendingToken   string
	User           *model.User
	RememberMe     bool
	RememberDevice bool
}

func (r *SignInResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

func (r *SignInResult) RequiresTwoFactor() bool {
	return r.Status == StatusTwoFactorRequired
}

func (r *SignInResult) IsLockedOut() bool {
	return r.LockedOut
}

// SecondFactors groups the verifiers used after the password step. Limiter may be nil.
type SecondFactors struct {
	Authenticator *twofactor.Authenticator
	Recovery      *twofactor.RecoveryCodes
	Sms           *twofactor.SmsCodes
	Limiter       AttemptLimiter
}

// SignInOptions configures the checks applied once the primary factor is accepted.
type SignInOptions struct {
	RequireConfirmedEmail   bool
	RequireConfirmedAccount bool
	SupportsStartEnd        bool
	// Locale is used for messages when the user has no language of their own.
	Locale string
	// Recaptcha is optional.
	Recaptcha RecaptchaVerifier
}

// LoginParams defines the parameters for a password sign-in.
type LoginParams struct {
	UserNameOrEmail string `validate:"required"`
	Password        string `validate:"required"`
	RememberMe      bool
	RecaptchaToken  string
}

// SignInUsecase drives a sign-in attempt from Anonymous to Complete, TwoFactorPending or Failed.
type SignInUsecase struct {
	logger     *zerolog.Logger
	users      *UserManager
	factors    SecondFactors
	pending    *PendingContext
	dispatcher MessageDispatcher
	translator *i18n.Translator
	opts       SignInOptions
}

func NewSignInUsecase(
	logger *zerolog.Logger,
	users *UserManager,
	factors SecondFactors,
	pending *PendingContext,
	dispatcher MessageDispatcher,
	translator *i18n.Translator,
	opts SignInOptions,
) *SignInUsecase {
	if opts.Locale == "" {
		opts.Locale = i18n.DefaultLocale
	}

	return &SignInUsecase{
		logger:     logger,
		users:      users,
		factors:    factors,
		pending:    pending,
		dispatcher: dispatcher,
		translator: translator,
		opts:       opts,
	}
}

// Login verifies the primary factor.
func (s *SignInUsecase) Login(ctx context.Context, params LoginParams) (*SignInResult, error) {
	if err := s.users.validate.StructCtx(ctx, params); err != nil {
		return nil, validationError(err, s.users.trans)
	}

	user, err := s.users.FindByUserNameOrEmail(ctx, params.UserNameOrEmail)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if s.opts.Recaptcha != nil {
		ok, err := s.opts.Recaptcha.Verify(ctx, params.RecaptchaToken)
		if err != nil {
			return nil, fmt.Errorf("verify recaptcha: %w", err)
		}
		if !ok {
			return s.fail(ctx, user, model.ReasonRecaptchaError, false)
		}
	}

	if user == nil {
		s.logger.Debug().Msg("sign-in for unknown user")
		return s.failed(nil, model.ReasonUserNameOrPasswordInvalid, false), nil
	}

	if s.users.IsLockedOut(user) {
		return s.fail(ctx, user, model.ReasonLockedOut, true)
	}

	ok, err := s.users.CheckPassword(user, params.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		locked, err := s.users.IncrementAccessFailedCount(ctx, user)
		if err != nil {
			return nil, err
		}

		reason := model.ReasonUserNameOrPasswordInvalid
		if locked {
			reason = model.ReasonLockedOut
		}
		s.logFailure(user, reason)

		return s.failed(user, reason, locked), nil
	}

	return s.afterPrimaryFactor(ctx, user, params.RememberMe)
}

// PendingUser resolves the user behind a pending token. An invalid or stale token, or a
// user that no longer exists, is repository.ErrNotFound.
func (s *SignInUsecase) PendingUser(ctx context.Context, token string) (*model.User, error) {
	identity, err := s.pending.Resolve(token)
	if err != nil {
		return nil, errors.Join(repository.ErrNotFound, err)
	}

	user, err := s.users.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	if user.SecurityStamp != identity.SecurityStamp || !user.TwoFactorEnabled {
		return nil, errors.Join(repository.ErrNotFound, ErrInvalidPendingContext)
	}

	return user, nil
}

// SubmitAuthenticatorCode completes a pending sign-in with a TOTP code.
func (s *SignInUsecase) SubmitAuthenticatorCode(
	ctx context.Context,
	user *model.User,
	code string,
	rememberMe, rememberDevice bool,
) (*SignInResult, error) {
	return s.secondFactor(ctx, user, model.ReasonFailedMfa, true, rememberMe, rememberDevice,
		func(ctx context.Context) (bool, error) {
			return s.factors.Authenticator.Verify(ctx, user.ID, code)
		})
}

// SubmitRecoveryCode completes a pending sign-in by consuming a recovery code.
func (s *SignInUsecase) SubmitRecoveryCode(ctx context.Context, user *model.User, code string) (*SignInResult, error) {
	return s.secondFactor(ctx, user, model.ReasonFailedRecoveryCode, false, false, false,
		func(ctx context.Context) (bool, error) {
			return s.factors.Recovery.Redeem(ctx, user.ID, code)
		})
}

// SubmitSmsCode completes a pending sign-in with the code sent by SendSmsCode.
func (s *SignInUsecase) SubmitSmsCode(ctx context.Context, user *model.User, code string) (*SignInResult, error) {
	return s.secondFactor(ctx, user, model.ReasonFailedSms, true, false, false,
		func(ctx context.Context) (bool, error) {
			return s.factors.Sms.Verify(ctx, user.ID, code)
		})
}

// SendSmsCode issues a code and sends it to the user's confirmed phone number.
// Delivery failures are logged only.
func (s *SignInUsecase) SendSmsCode(ctx context.Context, user *model.User) error {
	if user == nil {
		return repository.ErrNotFound
	}
	if user.PhoneNumber == "" || !user.PhoneNumberConfirmed {
		return newFieldError("PhoneNumber", "confirmed", ErrPhoneNotConfirmed)
	}

	code, err := s.factors.Sms.Issue(ctx, user.ID)
	if err != nil {
		return err
	}

	body := s.translator.Message(s.locale(user), i18n.KeySmsVerificationCode, code)
	if err := s.dispatcher.SendSms(ctx, user.PhoneNumber, body); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to dispatch sms code")
	}

	return nil
}

// afterPrimaryFactor applies account checks and decides between Complete and TwoFactorPending.
func (s *SignInUsecase) afterPrimaryFactor(
	ctx context.Context,
	user *model.User,
	rememberMe bool,
) (*SignInResult, error) {
	if reason, ok := s.checkAccount(user); !ok {
		return s.fail(ctx, user, reason, false)
	}

	if user.TwoFactorEnabled {
		token, err := s.pending.Issue(user, rememberMe)
		if err != nil {
			return nil, fmt.Errorf("issue pending context: %w", err)
		}

		s.logger.Info().Str("user_id", user.ID.Hex()).Msg("two factor required")

		return &SignInResult{
			Status:       StatusTwoFactorRequired,
			PendingToken: token,
			RememberMe:   rememberMe,
		}, nil
	}

	return s.complete(ctx, user, rememberMe, false)
}

func (s *SignInUsecase) checkAccount(user *model.User) (model.FailedLoginReason, bool) {
	switch {
	case s.opts.SupportsStartEnd && !user.IsWithinDateRange(s.users.now()):
		return model.ReasonNotWithinDateRange, false
	case s.opts.RequireConfirmedEmail && !user.EmailConfirmed:
		return model.ReasonEmailNotConfirmed, false
	case s.opts.RequireConfirmedAccount && !user.EmailConfirmed && !user.PhoneNumberConfirmed:
		return model.ReasonAccountNotConfirmed, false
	default:
		return "", true
	}
}

func (s *SignInUsecase) secondFactor(
	ctx context.Context,
	user *model.User,
	failure model.FailedLoginReason,
	countsTowardLockout bool,
	rememberMe, rememberDevice bool,
	verify func(ctx context.Context) (bool, error),
) (*SignInResult, error) {
	if user == nil {
		return nil, repository.ErrNotFound
	}
	key := user.ID.Hex()

	// Second-factor failures always record the factor's reason; a lock is reported
	// through SignInResult.LockedOut.
	if s.factors.Limiter != nil {
		if err := s.factors.Limiter.Check(ctx, key); err != nil {
			if errors.Is(err, limiter.ErrRateLimited) {
				return s.fail(ctx, user, failure, true)
			}
			s.logger.Warn().Err(err).Msg("attempt limiter check failed")
		}
	}

	if s.users.IsLockedOut(user) {
		return s.fail(ctx, user, failure, true)
	}

	ok, err := verify(ctx)
	if err != nil {
		return nil, err
	}

	if !ok {
		if s.factors.Limiter != nil {
			if err := s.factors.Limiter.RecordFailure(ctx, key); err != nil && !errors.Is(err, limiter.ErrRateLimited) {
				s.logger.Warn().Err(err).Msg("attempt limiter record failed")
			}
		}

		if !countsTowardLockout {
			return s.fail(ctx, user, failure, false)
		}

		locked, err := s.users.AccessFailed(ctx, user, failure)
		if err != nil {
			return nil, err
		}
		s.logFailure(user, failure)

		return s.failed(user, failure, locked), nil
	}

	if s.factors.Limiter != nil {
		if err := s.factors.Limiter.Reset(ctx, key); err != nil {
			s.logger.Warn().Err(err).Msg("attempt limiter reset failed")
		}
	}

	return s.complete(ctx, user, rememberMe, rememberDevice)
}

func (s *SignInUsecase) complete(
	ctx context.Context,
	user *model.User,
	rememberMe, rememberDevice bool,
) (*SignInResult, error) {
	if err := s.users.RecordSuccessfulLogin(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID.Hex()).Msg("sign-in succeeded")

	return &SignInResult{
		Status:         StatusSucceeded,
		User:           user,
		RememberMe:     rememberMe,
		RememberDevice: rememberDevice,
	}, nil
}

// fail records reason on the user, when there is one, and returns the failed result.
func (s *SignInUsecase) fail(
	ctx context.Context,
	user *model.User,
	reason model.FailedLoginReason,
	locked bool,
) (*SignInResult, error) {
	if user != nil {
		if err := s.users.RecordFailedLogin(ctx, user, reason); err != nil {
			return nil, err
		}
		s.logFailure(user, reason)
	}

	return s.failed(user, reason, locked), nil
}

// failed builds the result. A locked account gets the lockout message whatever the reason.
func (s *SignInUsecase) failed(user *model.User, reason model.FailedLoginReason, locked bool) *SignInResult {
	key := reason.MessageKey()
	if locked {
		key = model.ReasonLockedOut.MessageKey()
	}

	return &SignInResult{
		Status:    StatusFailed,
		Reason:    reason,
		LockedOut: locked,
		Message:   s.translator.Message(s.locale(user), key),
	}
}

func (s *SignInUsecase) logFailure(user *model.User, reason model.FailedLoginReason) {
	s.logger.Info().Str("user_id", user.ID.Hex()).Str("reason", string(reason)).Msg("sign-in failed")
}

func (s *SignInUsecase) locale(user *model.User) string {
	if user != nil && user.Language != "" {
		return user.Language
	}

	return s.opts.Locale
}
