// Package repositorytest holds the behavioural contract every repository.CredentialStore must satisfy.
package repositorytest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) repository.CredentialStore

// Run executes the contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("concurrency_stamp", func(t *testing.T) { testConcurrencyStamp(t, newStore(t)) })
	t.Run("concurrent_updates", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
	t.Run("delete_cascades", func(t *testing.T) { testDeleteCascades(t, newStore(t)) })
	t.Run("claims", func(t *testing.T) { testClaims(t, newStore(t)) })
	t.Run("logins", func(t *testing.T) { testLogins(t, newStore(t)) })
	t.Run("roles", func(t *testing.T) { testRoles(t, newStore(t)) })
	t.Run("tokens", func(t *testing.T) { testTokens(t, newStore(t)) })
}

// NewUser builds an unsaved user with normalized fields populated.
func NewUser(userName, email string) *model.User {
	return &model.User{
		UserName:           userName,
		NormalizedUserName: model.Normalize(userName),
		Email:              email,
		NormalizedEmail:    model.Normalize(email),
		SecurityStamp:      "stamp",
		LockoutEnabled:     true,
	}
}

func mustCreate(t *testing.T, store repository.CredentialStore, userName, email string) *model.User {
	t.Helper()
	u := NewUser(userName, email)
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func testUsers(t *testing.T, store repository.CredentialStore) {
	ctx := context.Background()
	u := NewUser("Admin", "admin@example.com")
	require.NoError(t, store.Create(ctx, u))
	assert.False(t, u.ID.IsZero())
	assert.NotEmpty(t, u.ConcurrencyStamp)

	byID, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Admin", byID.UserName)

	byName, err := store.FindByNormalizedUserName(ctx, model.Normalize("ADMIN"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := store.FindByNormalizedEmail(ctx, "ADMIN@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = store.FindByNormalizedUserName(ctx, "NOBODY")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = store.FindByID(ctx, model.NewID())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testConcurrencyStamp(t *testing.T, store repository.CredentialStore) {
	ctx := context.Background()
	u := mustCreate(t, store, "bob", "bob@example.com")

	first, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	second, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	readStamp := first.ConcurrencyStamp

	first.PhoneNumber = "5550100"
	require.NoError(t, store.Update(ctx, first))
	assert.NotEqual(t, readStamp, first.ConcurrencyStamp)

	second.AccessFailedCount = 3
	err = store.Update(ctx, second)
	require.ErrorIs(t, err, repository.ErrConcurrencyConflict)
	assert.Equal(t, readStamp, second.ConcurrencyStamp)

	stored, err := store.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "5550100", stored.PhoneNumber)
	assert.Equal(t, 0, stored.AccessFailedCount)

	stored.AccessFailedCount = 3
	require.NoError(t, store.Update(ctx, stored))
}

func testConcurrentUpdates(t *testing.T, store repository.CredentialStore) {
	ctx := context.Background()
	u := mustCreate(t, store, "carol", "carol@example.com")

	const writers = 8
	copies := make([]*model.User, writers)
	for i := range copies {
		c, err := store.FindByID(ctx, u.ID)
		require.NoError(t, err)
		copies[i] = c
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := range copies {
		wg.Add(1)
		go func(c *model.User) {
			defer wg.Done()
			c.LoginCount++
			err := store.Update(ctx, c)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, repository.ErrConcurrencyConflict):
				conflicts++
			}
		}(copies[i])
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, writers-1, conflicts)
}

func testDeleteCascades(t *testing.T, store repository.CredentialStore) {
	ctx := context.Background()
	u := mustCreate(t, store, "dave", "dave@example.com")
	require.NoError(t, store.CreateRole(ctx, &model.Role{Name: "Admin"}))

	require.NoError(t, store.AddClaims(ctx, u.ID, []model.ClaimValue{{Type: "dept", Value: "it"}}))
	require.NoError(t, store.AddLogin(ctx, u.ID, model.LoginInfo{Provider: "Google", ProviderKey: "g-1"}))
	require.NoError(t, store.SetToken(ctx, u.ID, "Google", "access_token", "secret"))
	require.NoError(t, store.AddToRole(ctx, u.ID, "ADMIN"))

	require.NoError(t, store.Delete(ctx, u.ID))
	require.NoError(t, store.Delete(ctx, u.ID))

	_, err := store.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	claims, err := store.ListClaims(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, claims)

	_, err = store.FindByLogin(ctx, "Google", "g-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = store.GetToken(ctx, u.ID, "Google", "access_token")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	inRole, err := store.IsInRole(ctx, u.ID, "ADMIN")
	require.NoError(t, err)
	assert.False(t, inRole)
}

func testClaims(t *testing.T, store repository.CredentialStore) {
	ctx := context.Background()
	alice := mustCreate(t, store, "alice", "alice@example.com")
	bob := mustCreate(t, store, "bob", "bob@example.com")

	shared := model.ClaimValue{Type: "dept", Value: "sales"}
	require.NoError(t, store.AddClaims(ctx, alice.ID, []model.ClaimValue{shared, {Type: "level", Value: "1"}}))
	require.NoError(t, store.AddClaims(ctx, bob.ID, []model.ClaimValue{shared}))

	claims, err := store.ListClaims(ctx, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.ClaimValue{shared, {Type: "level", Value: "1"}}, claims)

	holders, err := store.GetUsersForClaim(ctx, shared)
	require.NoError(t, err)
	assert.Len(t, holders, 2)

	// Replacing alice's claim must leave bob's identical claim untouched.
	require.NoError(t, store.ReplaceClaim(ctx, alice.ID, shared, model.ClaimValue{Type: "dept", Value: "hr"}))

	bobClaims, err := store.ListClaims(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.ClaimValue{shared}, bobClaims)

	aliceClaims, err := store.ListClaims(ctx, alice.ID)
	require.NoError(t, err)
	assert.Contains(t, aliceClaims, model.ClaimValue{Type: "dept", Value: "hr"})

	require.NoError(t, store.RemoveClaims(ctx, alice.ID, []model.ClaimValue{{Type: "level", Value: "1"}}))
	aliceClaims, err = store.ListClaims(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.ClaimValue{{Type: "dept", Value: "hr"}}, aliceClaims)
}

func testLogins(t *testing.T, store repository.CredentialStore) {
	ctx := context.Background()
	u := mustCreate(t, store, "erin", "erin@example.com")
	other := mustCreate(t, store, "frank", "frank@example.com")

	login := model.LoginInfo{Provider: "Google", ProviderKey: "sub-1", DisplayName: "Google"}
	require.NoError(t, store.AddLogin(ctx, u.ID, login))

	err := store.AddLogin(ctx, other.ID, login)
	assert.ErrorIs(t, err, repository.ErrConflict)

	found, err := store.FindByLogin(ctx, "Google", "sub-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	logins, err := store.ListLogins(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.LoginInfo{login}, logins)

	require.NoError(t, store.RemoveLogin(ctx, u.ID, "Google", "sub-1"))
	_, err = store.FindByLogin(ctx, "Google", "sub-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testRoles(t *testing.T, store repository.CredentialStore) {
	ctx := context.Background()
	u := mustCreate(t, store, "grace", "grace@example.com")

	err := store.AddToRole(ctx, u.ID, "ADMIN")
	require.ErrorIs(t, err, repository.ErrRoleNotFound)

	role := &model.Role{Name: "Admin"}
	require.NoError(t, store.CreateRole(ctx, role))
	assert.Equal(t, "ADMIN", role.NormalizedName)

	found, err := store.FindRoleByNormalizedName(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, role.ID, found.ID)

	require.NoError(t, store.AddToRole(ctx, u.ID, "ADMIN"))

	inRole, err := store.IsInRole(ctx, u.ID, "ADMIN")
	require.NoError(t, err)
	assert.True(t, inRole)

	roles, err := store.ListRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin"}, roles)

	members, err := store.ListUsersInRole(ctx, "ADMIN")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, u.ID, members[0].ID)

	none, err := store.ListUsersInRole(ctx, "MISSING")
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, store.RemoveFromRole(ctx, u.ID, "ADMIN"))
	inRole, err = store.IsInRole(ctx, u.ID, "ADMIN")
	require.NoError(t, err)
	assert.False(t, inRole)
}

func testTokens(t *testing.T, store repository.CredentialStore) {
	ctx := context.Background()
	u := mustCreate(t, store, "heidi", "heidi@example.com")

	_, err := store.GetToken(ctx, u.ID, "p", "k")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.SetToken(ctx, u.ID, "p", "k", "v1"))
	require.NoError(t, store.SetToken(ctx, u.ID, "p", "k", "v2"))

	value, err := store.GetToken(ctx, u.ID, "p", "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)

	swapped, err := store.CompareAndSwapToken(ctx, u.ID, "p", "k", "v1", "v3")
	require.NoError(t, err)
	assert.False(t, swapped)

	swapped, err = store.CompareAndSwapToken(ctx, u.ID, "p", "k", "v2", "v3")
	require.NoError(t, err)
	assert.True(t, swapped)

	swapped, err = store.CompareAndSwapToken(ctx, u.ID, "p", "missing", "", "x")
	require.NoError(t, err)
	assert.False(t, swapped)

	require.NoError(t, store.RemoveToken(ctx, u.ID, "p", "k"))
	require.NoError(t, store.RemoveToken(ctx, u.ID, "p", "k"))
	_, err = store.GetToken(ctx, u.ID, "p", "k")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
