package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/limiter"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
)

type stubRecaptcha bool

func (s stubRecaptcha) Verify(context.Context, string) (bool, error) {
	return bool(s), nil
}

func login(t *testing.T, env *testEnv, userNameOrEmail, password string) *SignInResult {
	t.Helper()

	result, err := env.signIn.Login(context.Background(), LoginParams{
		UserNameOrEmail: userNameOrEmail,
		Password:        password,
	})
	require.NoError(t, err)

	return result
}

func TestSignIn_EndToEnd(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")

	result := login(t, env, "alice@example.com", testPassword)
	require.True(t, result.Succeeded())
	assert.Equal(t, alice.ID, result.User.ID)

	secret := env.enableTwoFactor(t, env.reload(t, alice))

	result = login(t, env, "alice@example.com", testPassword)
	assert.False(t, result.Succeeded())
	require.True(t, result.RequiresTwoFactor())
	require.NotEmpty(t, result.PendingToken)

	pending, err := env.signIn.PendingUser(ctx, result.PendingToken)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, pending.ID)

	bad, err := env.signIn.SubmitAuthenticatorCode(ctx, pending, "000000x", false, false)
	require.NoError(t, err)
	assert.False(t, bad.Succeeded())
	assert.Equal(t, model.ReasonFailedMfa, bad.Reason)
	require.NotNil(t, env.reload(t, alice).LastFailedLoginReason)
	assert.Equal(t, model.ReasonFailedMfa, *env.reload(t, alice).LastFailedLoginReason)

	good, err := env.signIn.SubmitAuthenticatorCode(ctx, pending, currentCode(t, secret), true, true)
	require.NoError(t, err)
	assert.True(t, good.Succeeded())
	assert.True(t, good.RememberDevice)

	stored := env.reload(t, alice)
	assert.Nil(t, stored.LastFailedLoginReason)
	assert.Equal(t, 0, stored.AccessFailedCount)
	assert.Equal(t, 2, stored.LoginCount)
	require.NotNil(t, stored.LastLogin)
}

func TestSignIn_UnknownUserAndWrongPasswordLookAlike(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", "alice@example.com")

	unknown := login(t, env, "nobody@example.com", testPassword)
	wrong := login(t, env, "alice", "wrong-password")

	assert.Equal(t, model.ReasonUserNameOrPasswordInvalid, unknown.Reason)
	assert.Equal(t, model.ReasonUserNameOrPasswordInvalid, wrong.Reason)
	assert.Equal(t, unknown.Message, wrong.Message)
	assert.Equal(t, "Invalid username or password.", wrong.Message)
}

func TestSignIn_LockoutAfterThreshold(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")

	for i := 0; i < 2; i++ {
		result := login(t, env, "alice", "wrong-password")
		assert.Equal(t, model.ReasonUserNameOrPasswordInvalid, result.Reason)
	}

	third := login(t, env, "alice", "wrong-password")
	assert.True(t, third.IsLockedOut(), "the attempt that crosses the threshold reports the lock")

	withCorrectPassword := login(t, env, "alice", testPassword)
	assert.False(t, withCorrectPassword.Succeeded())
	assert.True(t, withCorrectPassword.IsLockedOut())
	assert.Equal(t, "This account is locked. Please try again later.", withCorrectPassword.Message)

	env.advance(5*time.Minute + time.Second)

	result := login(t, env, "alice", testPassword)
	assert.True(t, result.Succeeded())
	assert.Equal(t, 0, env.reload(t, alice).AccessFailedCount)
}

func TestSignIn_LockoutDisabled(t *testing.T) {
	env := newTestEnv(t, func(o *envOptions) { o.lockout.EnabledForNewUsers = false })
	alice := env.createUser(t, "alice", "alice@example.com")

	for i := 0; i < 10; i++ {
		result := login(t, env, "alice", "wrong-password")
		assert.Equal(t, model.ReasonUserNameOrPasswordInvalid, result.Reason)
	}

	assert.Nil(t, env.reload(t, alice).LockoutEnd)
	assert.True(t, login(t, env, "alice", testPassword).Succeeded())
}

func TestSignIn_AccountChecks(t *testing.T) {
	ctx := context.Background()
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		options SignInOptions
		prepare func(t *testing.T, env *testEnv, user *model.User)
		reason  model.FailedLoginReason
	}{
		{
			name:    "email not confirmed",
			options: SignInOptions{RequireConfirmedEmail: true},
			prepare: func(t *testing.T, env *testEnv, user *model.User) {
				require.NoError(t, env.users.SetEmail(ctx, user, "alice@example.org"))
			},
			reason: model.ReasonEmailNotConfirmed,
		},
		{
			name:    "account not confirmed",
			options: SignInOptions{RequireConfirmedAccount: true},
			prepare: func(t *testing.T, env *testEnv, user *model.User) {
				require.NoError(t, env.users.SetEmail(ctx, user, "alice@example.org"))
			},
			reason: model.ReasonAccountNotConfirmed,
		},
		{
			name:    "outside validity window",
			options: SignInOptions{SupportsStartEnd: true},
			prepare: func(t *testing.T, env *testEnv, user *model.User) {
				require.NoError(t, env.users.update(ctx, user, func(u *model.User) { u.ValidTo = &past }))
			},
			reason: model.ReasonNotWithinDateRange,
		},
		{
			name:    "recaptcha rejected",
			options: SignInOptions{Recaptcha: stubRecaptcha(false)},
			prepare: func(*testing.T, *testEnv, *model.User) {},
			reason:  model.ReasonRecaptchaError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(o *envOptions) { o.signIn = tt.options })
			user := env.createUser(t, "alice", "alice@example.com")
			tt.prepare(t, env, user)

			result := login(t, env, "alice", testPassword)
			assert.Equal(t, StatusFailed, result.Status)
			assert.Equal(t, tt.reason, result.Reason)
			assert.Equal(t, env.translator.Message("en", tt.reason.MessageKey()), result.Message)

			stored := env.reload(t, user)
			require.NotNil(t, stored.LastFailedLoginReason)
			assert.Equal(t, tt.reason, *stored.LastFailedLoginReason)
		})
	}
}

func TestSignIn_MessageUsesUserLanguage(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users.Create(context.Background(), CreateUserParams{
		UserName: "amelie",
		Password: testPassword,
		Language: "fr",
	})
	require.NoError(t, err)

	result := login(t, env, "amelie", "wrong-password")
	assert.Equal(t, "Nom d'utilisateur ou mot de passe invalide.", result.Message)
}

func TestSignIn_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.signIn.Login(context.Background(), LoginParams{UserNameOrEmail: "alice"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSignIn_RecoveryCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")
	env.enableTwoFactor(t, alice)
	require.NoError(t, env.recovery.Replace(ctx, alice.ID, []string{"abc-123", "def-456"}))

	pending := env.reload(t, alice)

	result, err := env.signIn.SubmitRecoveryCode(ctx, pending, "abc 123")
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	result, err = env.signIn.SubmitRecoveryCode(ctx, env.reload(t, alice), "abc-123")
	require.NoError(t, err)
	assert.Equal(t, model.ReasonFailedRecoveryCode, result.Reason)

	count, err := env.recovery.Count(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSignIn_SmsCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")

	err := env.signIn.SendSmsCode(ctx, alice)
	require.ErrorIs(t, err, ErrPhoneNotConfirmed)

	require.NoError(t, env.users.SetPhoneNumber(ctx, alice, "+15550100"))
	require.NoError(t, env.users.ConfirmPhoneNumber(ctx, alice))
	require.NoError(t, env.signIn.SendSmsCode(ctx, alice))

	require.Len(t, env.dispatcher.sms, 1)
	sent := env.dispatcher.sms[0]
	assert.Equal(t, "+15550100", sent.phoneNumber)
	code := strings.TrimPrefix(sent.body, "Your verification code is ")
	require.Len(t, code, 6)

	result, err := env.signIn.SubmitSmsCode(ctx, alice, "not-it")
	require.NoError(t, err)
	assert.Equal(t, model.ReasonFailedSms, result.Reason)

	result, err = env.signIn.SubmitSmsCode(ctx, alice, code)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
}

func TestSignIn_AttemptLimiter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := newTestEnv(t, func(o *envOptions) {
		o.lockout.MaxFailedAttempts = 100
		o.limiter = limiter.New(client, limiter.Config{MaxAttempts: 2, Window: time.Minute})
	})
	alice := env.createUser(t, "alice", "alice@example.com")
	secret := env.enableTwoFactor(t, alice)

	for i := 0; i < 2; i++ {
		result, err := env.signIn.SubmitAuthenticatorCode(ctx, env.reload(t, alice), "000000x", false, false)
		require.NoError(t, err)
		assert.Equal(t, model.ReasonFailedMfa, result.Reason)
	}

	result, err := env.signIn.SubmitAuthenticatorCode(ctx, env.reload(t, alice), currentCode(t, secret), false, false)
	require.NoError(t, err)
	assert.True(t, result.IsLockedOut(), "limited attempts are rejected before the code is checked")
	assert.Equal(t, model.ReasonFailedMfa, result.Reason)

	mr.FastForward(2 * time.Minute)

	result, err = env.signIn.SubmitAuthenticatorCode(ctx, env.reload(t, alice), currentCode(t, secret), false, false)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
}

func TestSignIn_PendingUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")
	env.enableTwoFactor(t, alice)

	result := login(t, env, "alice", testPassword)
	require.True(t, result.RequiresTwoFactor())

	_, err := env.signIn.PendingUser(ctx, "garbage")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, env.users.UpdateSecurityStamp(ctx, env.reload(t, alice)))
	_, err = env.signIn.PendingUser(ctx, result.PendingToken)
	assert.ErrorIs(t, err, repository.ErrNotFound, "a stamp rotation revokes pending contexts")

	result = login(t, env, "alice", testPassword)
	require.NoError(t, env.users.Delete(ctx, alice))
	_, err = env.signIn.PendingUser(ctx, result.PendingToken)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSignIn_SecondFactorWithoutUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.signIn.SubmitAuthenticatorCode(context.Background(), nil, "123456", false, false)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSignIn_SecondFactorLockoutKeepsFactorReason(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")
	secret := env.enableTwoFactor(t, alice)
	pending := env.reload(t, alice)

	wantLocked := []bool{false, false, true, true}
	for i, locked := range wantLocked {
		result, err := env.signIn.SubmitAuthenticatorCode(ctx, pending, "000000x", false, false)
		require.NoError(t, err)
		assert.Equal(t, model.ReasonFailedMfa, result.Reason, "attempt %d", i+1)
		assert.Equal(t, locked, result.IsLockedOut(), "attempt %d", i+1)

		stored := env.reload(t, alice)
		require.NotNil(t, stored.LastFailedLoginReason)
		assert.Equal(t, model.ReasonFailedMfa, *stored.LastFailedLoginReason, "attempt %d", i+1)
	}

	result, err := env.signIn.SubmitAuthenticatorCode(ctx, pending, currentCode(t, secret), false, false)
	require.NoError(t, err)
	assert.False(t, result.Succeeded())
	assert.True(t, result.IsLockedOut())
	assert.Equal(t, model.ReasonFailedMfa, result.Reason)
	assert.Equal(t, "This account is locked. Please try again later.", result.Message)
}

func TestSignIn_SmsLockoutKeepsFactorReason(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")

	var result *SignInResult
	for i := 0; i < 3; i++ {
		var err error
		result, err = env.signIn.SubmitSmsCode(ctx, alice, "999999x")
		require.NoError(t, err)
	}

	assert.True(t, result.IsLockedOut())
	assert.Equal(t, model.ReasonFailedSms, result.Reason)
	stored := env.reload(t, alice)
	require.NotNil(t, stored.LastFailedLoginReason)
	assert.Equal(t, model.ReasonFailedSms, *stored.LastFailedLoginReason)
}
