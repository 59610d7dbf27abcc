package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/shared/provider"
)

// stubProvider accepts "valid:<subject>" tokens.
type stubProvider struct{}

func (stubProvider) Name() string {
	return provider.GoogleProvider
}

func (stubProvider) ValidateIDToken(_ context.Context, idToken string) (*provider.ExternalIdentity, error) {
	subject, ok := strings.CutPrefix(idToken, "valid:")
	if !ok {
		return nil, errors.New("rejected")
	}

	return &provider.ExternalIdentity{Provider: provider.GoogleProvider, Subject: subject, EmailVerified: true}, nil
}

func newExternalLogin(env *testEnv) *ExternalLoginUsecase {
	logger := zerolog.Nop()
	return NewExternalLoginUsecase(&logger, env.signIn, env.vault, stubProvider{})
}

func TestExternalLogin_SignIn(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	external := newExternalLogin(env)
	alice := env.createUser(t, "alice", "alice@example.com")

	result, err := external.SignIn(ctx, provider.GoogleProvider, "valid:g-123")
	require.NoError(t, err)
	assert.Equal(t, StatusNotLinked, result.Status)

	require.NoError(t, external.Link(ctx, alice, provider.GoogleProvider, "valid:g-123"))

	result, err = external.SignIn(ctx, provider.GoogleProvider, "valid:g-123")
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.Equal(t, alice.ID, result.User.ID)

	stored, ok, err := env.vault.GetToken(ctx, alice.ID, provider.GoogleProvider, externalTokenName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "valid:g-123", stored)
}

func TestExternalLogin_RequiresSecondFactor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	external := newExternalLogin(env)
	alice := env.createUser(t, "alice", "alice@example.com")
	require.NoError(t, external.Link(ctx, alice, provider.GoogleProvider, "valid:g-123"))
	env.enableTwoFactor(t, env.reload(t, alice))

	result, err := external.SignIn(ctx, provider.GoogleProvider, "valid:g-123")
	require.NoError(t, err)
	assert.True(t, result.RequiresTwoFactor())
	assert.NotEmpty(t, result.PendingToken)
}

func TestExternalLogin_LockedOut(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	external := newExternalLogin(env)
	alice := env.createUser(t, "alice", "alice@example.com")
	require.NoError(t, external.Link(ctx, alice, provider.GoogleProvider, "valid:g-123"))

	for i := 0; i < 3; i++ {
		login(t, env, "alice", "wrong-password")
	}

	result, err := external.SignIn(ctx, provider.GoogleProvider, "valid:g-123")
	require.NoError(t, err)
	assert.True(t, result.IsLockedOut())
}

func TestExternalLogin_Rejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	external := newExternalLogin(env)
	alice := env.createUser(t, "alice", "alice@example.com")

	_, err := external.SignIn(ctx, "Facebook", "valid:x")
	assert.ErrorIs(t, err, ErrUnknownProvider)

	result, err := external.SignIn(ctx, provider.GoogleProvider, "forged")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, model.ReasonUnknown, result.Reason)

	assert.Error(t, external.Link(ctx, alice, provider.GoogleProvider, "forged"))

	_, ok, err := env.vault.GetToken(ctx, alice.ID, provider.GoogleProvider, externalTokenName)
	require.NoError(t, err)
	assert.False(t, ok)
}
