package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoFactor_EnableRequiresValidCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")

	uri, err := env.twoFactor.ResetAuthenticatorKey(ctx, alice)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	assert.Contains(t, uri, "alice@example.com")

	_, err = env.twoFactor.EnableTwoFactor(ctx, alice, "12345x")
	require.ErrorIs(t, err, ErrInvalidTwoFactorCode)
	require.ErrorIs(t, err, ErrValidation)
	assert.False(t, env.reload(t, alice).TwoFactorEnabled)

	secret, _, err := env.authenticator.GetKey(ctx, alice.ID)
	require.NoError(t, err)

	codes, err := env.twoFactor.EnableTwoFactor(ctx, alice, currentCode(t, secret))
	require.NoError(t, err)
	assert.Len(t, codes, 10)
	assert.True(t, env.reload(t, alice).TwoFactorEnabled)
}

func TestTwoFactor_EnableKeepsExistingRecoveryCodes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")
	require.NoError(t, env.recovery.Replace(ctx, alice.ID, []string{"AAAAA-BBBBB"}))

	_, err := env.twoFactor.ResetAuthenticatorKey(ctx, alice)
	require.NoError(t, err)
	secret, _, err := env.authenticator.GetKey(ctx, alice.ID)
	require.NoError(t, err)

	codes, err := env.twoFactor.EnableTwoFactor(ctx, alice, currentCode(t, secret))
	require.NoError(t, err)
	assert.Nil(t, codes)

	count, err := env.twoFactor.CountRecoveryCodes(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTwoFactor_ResetKeyRotatesSecurityStamp(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")
	stamp := alice.SecurityStamp

	_, err := env.twoFactor.ResetAuthenticatorKey(ctx, alice)
	require.NoError(t, err)

	assert.NotEqual(t, stamp, env.reload(t, alice).SecurityStamp)
}

func TestTwoFactor_Disable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")
	env.enableTwoFactor(t, alice)

	require.NoError(t, env.twoFactor.DisableTwoFactor(ctx, alice))

	stored := env.reload(t, alice)
	assert.False(t, stored.TwoFactorEnabled)

	_, ok, err := env.authenticator.GetKey(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := env.twoFactor.CountRecoveryCodes(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	result := login(t, env, "alice", testPassword)
	assert.True(t, result.Succeeded())
}

func TestTwoFactor_GenerateRecoveryCodes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", "alice@example.com")

	_, err := env.twoFactor.GenerateRecoveryCodes(ctx, alice)
	require.ErrorIs(t, err, ErrTwoFactorNotEnabled)

	env.enableTwoFactor(t, alice)

	first, err := env.twoFactor.GenerateRecoveryCodes(ctx, alice)
	require.NoError(t, err)
	require.Len(t, first, 10)

	second, err := env.twoFactor.GenerateRecoveryCodes(ctx, alice)
	require.NoError(t, err)

	redeemed, err := env.recovery.Redeem(ctx, alice.ID, first[0])
	require.NoError(t, err)
	assert.False(t, redeemed, "regenerating discards the previous set")

	redeemed, err = env.recovery.Redeem(ctx, alice.ID, second[0])
	require.NoError(t, err)
	assert.True(t, redeemed)
}
