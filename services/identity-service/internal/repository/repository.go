package repository

import (
	"context"
	"errors"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
)

var (
	// ErrNotFound is returned when an identifier does not resolve to a record.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint rejects an insert.
	ErrConflict = errors.New("record already exists")
	// ErrConcurrencyConflict is returned when an update does not match the stored concurrency stamp.
	// Callers recover by re-reading the record and retrying.
	ErrConcurrencyConflict = errors.New("optimistic concurrency failure, object has been modified")
	// ErrRoleNotFound is returned by role assignment when the role name does not resolve.
	ErrRoleNotFound = errors.New("role not found")
)

// UserRepository persists User records. Update is the single compare-and-swap write path.
type UserRepository interface {
	// Create assigns a new ID and concurrency stamp and inserts the user.
	Create(ctx context.Context, user *model.User) error

	// Update replaces the stored user only if its concurrency stamp still equals user.ConcurrencyStamp.
	// On success user.ConcurrencyStamp holds the new stamp.
	Update(ctx context.Context, user *model.User) error

	// Delete removes the user and everything it owns. Deleting an absent user is not an error.
	Delete(ctx context.Context, id model.ID) error

	FindByID(ctx context.Context, id model.ID) (*model.User, error)
	FindByNormalizedUserName(ctx context.Context, normalizedUserName string) (*model.User, error)
	FindByNormalizedEmail(ctx context.Context, normalizedEmail string) (*model.User, error)
}

// ClaimRepository persists user claims.
type ClaimRepository interface {
	ListClaims(ctx context.Context, userID model.ID) ([]model.ClaimValue, error)
	AddClaims(ctx context.Context, userID model.ID, claims []model.ClaimValue) error
	ReplaceClaim(ctx context.Context, userID model.ID, claim, newClaim model.ClaimValue) error
	RemoveClaims(ctx context.Context, userID model.ID, claims []model.ClaimValue) error
	GetUsersForClaim(ctx context.Context, claim model.ClaimValue) ([]*model.User, error)
}

// LoginRepository persists external login links.
type LoginRepository interface {
	AddLogin(ctx context.Context, userID model.ID, login model.LoginInfo) error
	RemoveLogin(ctx context.Context, userID model.ID, provider, providerKey string) error
	ListLogins(ctx context.Context, userID model.ID) ([]model.LoginInfo, error)
	FindByLogin(ctx context.Context, provider, providerKey string) (*model.User, error)
}

// RoleRepository persists roles and user membership. Role names are compared in normalized form.
type RoleRepository interface {
	CreateRole(ctx context.Context, role *model.Role) error
	FindRoleByNormalizedName(ctx context.Context, normalizedName string) (*model.Role, error)
	AddToRole(ctx context.Context, userID model.ID, normalizedRoleName string) error
	RemoveFromRole(ctx context.Context, userID model.ID, normalizedRoleName string) error
	ListRoles(ctx context.Context, userID model.ID) ([]string, error)
	IsInRole(ctx context.Context, userID model.ID, normalizedRoleName string) (bool, error)
	ListUsersInRole(ctx context.Context, normalizedRoleName string) ([]*model.User, error)
}

// TokenRepository persists (user, provider, name) → value entries. Tokens are not versioned.
type TokenRepository interface {
	// SetToken inserts or replaces the value; last write wins.
	SetToken(ctx context.Context, userID model.ID, provider, name, value string) error

	// GetToken returns ErrNotFound when no entry exists.
	GetToken(ctx context.Context, userID model.ID, provider, name string) (string, error)

	// RemoveToken deletes the entry. Removing an absent entry is not an error.
	RemoveToken(ctx context.Context, userID model.ID, provider, name string) error

	// CompareAndSwapToken sets the value to next only if it currently equals current.
	// It reports false when the entry is absent or holds a different value.
	CompareAndSwapToken(ctx context.Context, userID model.ID, provider, name, current, next string) (bool, error)
}

// CredentialStore is a storage engine implementing every capability.
type CredentialStore interface {
	UserRepository
	ClaimRepository
	LoginRepository
	RoleRepository
	TokenRepository
}
