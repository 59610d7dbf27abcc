package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository/repositorytest"
)

func TestStore_Contract(t *testing.T) {
	repositorytest.Run(t, func(t *testing.T) repository.CredentialStore {
		return NewStore()
	})
}

func TestStore_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	store := NewStore(WithUniqueUserName(), WithUniqueEmail())

	require.NoError(t, store.Create(ctx, repositorytest.NewUser("alice", "alice@example.com")))

	err := store.Create(ctx, repositorytest.NewUser("ALICE", "other@example.com"))
	assert.ErrorIs(t, err, repository.ErrConflict)

	err = store.Create(ctx, repositorytest.NewUser("bob", "Alice@Example.com"))
	assert.ErrorIs(t, err, repository.ErrConflict)

	require.NoError(t, store.Create(ctx, repositorytest.NewUser("carol", "")))
	require.NoError(t, store.Create(ctx, repositorytest.NewUser("dave", "")))
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	u := repositorytest.NewUser("alice", "alice@example.com")
	require.NoError(t, store.Create(ctx, u))

	u.PhoneNumber = "mutated without update"

	stored, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PhoneNumber)
}
