package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/i18n"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository/memory"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/twofactor"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/vault"
	"github.com/vasapolrittideah/identity-api/shared/auth"
)

const testPassword = "correct-horse-battery"

type sentEmail struct {
	address  string
	template string
	vars     map[string]string
}

type sentSms struct {
	phoneNumber string
	body        string
}

type fakeDispatcher struct {
	mu     sync.Mutex
	emails []sentEmail
	sms    []sentSms
	err    error
}

func (d *fakeDispatcher) SendEmailUsingTemplate(
	_ context.Context,
	address, templateName string,
	vars map[string]string,
) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emails = append(d.emails, sentEmail{address: address, template: templateName, vars: vars})
	return d.err
}

func (d *fakeDispatcher) SendSms(_ context.Context, phoneNumber, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sms = append(d.sms, sentSms{phoneNumber: phoneNumber, body: body})
	return d.err
}

type envOptions struct {
	signIn  SignInOptions
	lockout LockoutOptions
	limiter AttemptLimiter
}

type testEnv struct {
	now           time.Time
	store         *memory.Store
	vault         *vault.TokenVault
	users         *UserManager
	authenticator *twofactor.Authenticator
	recovery      *twofactor.RecoveryCodes
	sms           *twofactor.SmsCodes
	dispatcher    *fakeDispatcher
	translator    *i18n.Translator
	jwtAuth       auth.JWTAuthenticator
	signIn        *SignInUsecase
	twoFactor     *TwoFactorUsecase
}

func newTestEnv(t *testing.T, configure ...func(*envOptions)) *testEnv {
	t.Helper()

	opts := envOptions{
		lockout: LockoutOptions{
			EnabledForNewUsers: true,
			MaxFailedAttempts:  3,
			Duration:           5 * time.Minute,
			ConflictRetries:    3,
		},
	}
	for _, c := range configure {
		c(&opts)
	}

	logger := zerolog.Nop()
	translator, err := i18n.New()
	require.NoError(t, err)

	validate := validator.New(validator.WithRequiredStructEnabled())
	require.NoError(t, translator.RegisterValidator(validate))

	env := &testEnv{
		now:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		store:      memory.NewStore(memory.WithUniqueUserName(), memory.WithUniqueEmail()),
		dispatcher: &fakeDispatcher{},
		translator: translator,
		jwtAuth:    auth.NewJWTAuthenticator("identity", "identity", "test-secret"),
	}
	env.vault = vault.New(env.store)
	env.users = NewUserManager(&logger, env.store, validate, translator.For("en"), opts.lockout)
	env.users.now = func() time.Time { return env.now }
	env.authenticator = twofactor.NewAuthenticator(env.vault, twofactor.AuthenticatorConfig{Issuer: "Identity", Skew: 1})
	env.recovery = twofactor.NewRecoveryCodes(env.vault)
	env.sms = twofactor.NewSmsCodes(env.vault, 5*time.Minute)

	env.signIn = NewSignInUsecase(
		&logger,
		env.users,
		SecondFactors{
			Authenticator: env.authenticator,
			Recovery:      env.recovery,
			Sms:           env.sms,
			Limiter:       opts.limiter,
		},
		NewPendingContext(env.jwtAuth, 5*time.Minute),
		env.dispatcher,
		translator,
		opts.signIn,
	)
	env.twoFactor = NewTwoFactorUsecase(&logger, env.users, env.authenticator, env.recovery, 10)

	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func (e *testEnv) createUser(t *testing.T, userName, email string) *model.User {
	t.Helper()

	user, err := e.users.Create(context.Background(), CreateUserParams{
		UserName:       userName,
		Email:          email,
		Password:       testPassword,
		EmailConfirmed: true,
	})
	require.NoError(t, err)

	return user
}

// enableTwoFactor provisions an authenticator key and returns its secret.
func (e *testEnv) enableTwoFactor(t *testing.T, user *model.User) string {
	t.Helper()
	ctx := context.Background()

	_, err := e.twoFactor.ResetAuthenticatorKey(ctx, user)
	require.NoError(t, err)

	secret, ok, err := e.authenticator.GetKey(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = e.twoFactor.EnableTwoFactor(ctx, user, currentCode(t, secret))
	require.NoError(t, err)

	return secret
}

func (e *testEnv) reload(t *testing.T, user *model.User) *model.User {
	t.Helper()

	fresh, err := e.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)

	return fresh
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	return code
}
