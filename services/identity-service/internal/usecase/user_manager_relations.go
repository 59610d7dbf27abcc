package usecase

import (
	"context"
	"errors"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
)

type roleParams struct {
	Name string `validate:"required,max=256"`
}

// CreateRole creates a role unless one with the same normalized name exists.
func (m *UserManager) CreateRole(ctx context.Context, name string) (*model.Role, error) {
	if err := m.validate.StructCtx(ctx, roleParams{Name: name}); err != nil {
		return nil, validationError(err, m.trans)
	}

	role, err := m.roles.FindRoleByNormalizedName(ctx, model.Normalize(name))
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	role = &model.Role{Name: name}
	if err := m.roles.CreateRole(ctx, role); err != nil {
		return nil, err
	}

	return role, nil
}

// AddToRole assigns the role. An unknown role is a ValidationError wrapping repository.ErrRoleNotFound.
func (m *UserManager) AddToRole(ctx context.Context, user *model.User, roleName string) error {
	err := m.roles.AddToRole(ctx, user.ID, model.Normalize(roleName))
	if errors.Is(err, repository.ErrRoleNotFound) {
		return newFieldError("RoleName", "exists", err)
	}

	return err
}

func (m *UserManager) RemoveFromRole(ctx context.Context, user *model.User, roleName string) error {
	err := m.roles.RemoveFromRole(ctx, user.ID, model.Normalize(roleName))
	if errors.Is(err, repository.ErrRoleNotFound) {
		return newFieldError("RoleName", "exists", err)
	}

	return err
}

func (m *UserManager) GetRoles(ctx context.Context, user *model.User) ([]string, error) {
	return m.roles.ListRoles(ctx, user.ID)
}

func (m *UserManager) IsInRole(ctx context.Context, user *model.User, roleName string) (bool, error) {
	return m.roles.IsInRole(ctx, user.ID, model.Normalize(roleName))
}

func (m *UserManager) GetUsersInRole(ctx context.Context, roleName string) ([]*model.User, error) {
	return m.roles.ListUsersInRole(ctx, model.Normalize(roleName))
}

func (m *UserManager) GetClaims(ctx context.Context, user *model.User) ([]model.ClaimValue, error) {
	return m.claims.ListClaims(ctx, user.ID)
}

func (m *UserManager) AddClaims(ctx context.Context, user *model.User, claims ...model.ClaimValue) error {
	for _, c := range claims {
		if err := m.validate.StructCtx(ctx, c); err != nil {
			return validationError(err, m.trans)
		}
	}

	return m.claims.AddClaims(ctx, user.ID, claims)
}

func (m *UserManager) ReplaceClaim(ctx context.Context, user *model.User, claim, newClaim model.ClaimValue) error {
	if err := m.validate.StructCtx(ctx, newClaim); err != nil {
		return validationError(err, m.trans)
	}

	return m.claims.ReplaceClaim(ctx, user.ID, claim, newClaim)
}

func (m *UserManager) RemoveClaims(ctx context.Context, user *model.User, claims ...model.ClaimValue) error {
	return m.claims.RemoveClaims(ctx, user.ID, claims)
}

func (m *UserManager) GetUsersForClaim(ctx context.Context, claim model.ClaimValue) ([]*model.User, error) {
	return m.claims.GetUsersForClaim(ctx, claim)
}

func (m *UserManager) AddLogin(ctx context.Context, user *model.User, login model.LoginInfo) error {
	if err := m.validate.StructCtx(ctx, login); err != nil {
		return validationError(err, m.trans)
	}

	return m.logins.AddLogin(ctx, user.ID, login)
}

func (m *UserManager) RemoveLogin(ctx context.Context, user *model.User, provider, providerKey string) error {
	return m.logins.RemoveLogin(ctx, user.ID, provider, providerKey)
}

func (m *UserManager) GetLogins(ctx context.Context, user *model.User) ([]model.LoginInfo, error) {
	return m.logins.ListLogins(ctx, user.ID)
}

func (m *UserManager) FindByLogin(ctx context.Context, provider, providerKey string) (*model.User, error) {
	return m.logins.FindByLogin(ctx, provider, providerKey)
}
