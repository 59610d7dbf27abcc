package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
)

func (s *Store) CreateRole(_ context.Context, role *model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := model.Normalize(role.Name)
	if _, err := s.roleByName(normalized); err == nil {
		return fmt.Errorf("insert role: %w", repository.ErrConflict)
	}

	role.ID = model.NewID()
	role.NormalizedName = normalized
	role.ConcurrencyStamp = uuid.NewString()
	stored := *role
	s.roles[role.ID] = &stored

	return nil
}

func (s *Store) FindRoleByNormalizedName(_ context.Context, normalizedName string) (*model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.roleByName(normalizedName)
}

func (s *Store) AddToRole(_ context.Context, userID model.ID, normalizedRoleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, err := s.requireRole(normalizedRoleName)
	if err != nil {
		return err
	}

	for _, m := range s.userRoles {
		if m.UserID == userID && m.RoleID == role.ID {
			return fmt.Errorf("insert user role: %w", repository.ErrConflict)
		}
	}

	s.userRoles = append(s.userRoles, model.UserRole{ID: model.NewID(), UserID: userID, RoleID: role.ID})

	return nil
}

func (s *Store) RemoveFromRole(_ context.Context, userID model.ID, normalizedRoleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, err := s.requireRole(normalizedRoleName)
	if err != nil {
		return err
	}

	kept := s.userRoles[:0]
	for _, m := range s.userRoles {
		if m.UserID == userID && m.RoleID == role.ID {
			continue
		}
		kept = append(kept, m)
	}
	s.userRoles = kept

	return nil
}

func (s *Store) ListRoles(_ context.Context, userID model.ID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := []string{}
	for _, m := range s.userRoles {
		if m.UserID != userID {
			continue
		}
		if r, ok := s.roles[m.RoleID]; ok {
			names = append(names, r.Name)
		}
	}

	return names, nil
}

func (s *Store) IsInRole(_ context.Context, userID model.ID, normalizedRoleName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, err := s.roleByName(normalizedRoleName)
	if err != nil {
		return false, nil
	}

	for _, m := range s.userRoles {
		if m.UserID == userID && m.RoleID == role.ID {
			return true, nil
		}
	}

	return false, nil
}

func (s *Store) ListUsersInRole(_ context.Context, normalizedRoleName string) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	role, err := s.roleByName(normalizedRoleName)
	if err != nil {
		return []*model.User{}, nil
	}

	var ids []model.ID
	for _, m := range s.userRoles {
		if m.RoleID == role.ID {
			ids = append(ids, m.UserID)
		}
	}

	return s.usersByID(ids), nil
}

func (s *Store) roleByName(normalizedName string) (*model.Role, error) {
	for _, r := range s.roles {
		if r.NormalizedName == normalizedName {
			c := *r
			return &c, nil
		}
	}

	return nil, repository.ErrNotFound
}

func (s *Store) requireRole(normalizedName string) (*model.Role, error) {
	role, err := s.roleByName(normalizedName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", repository.ErrRoleNotFound, normalizedName)
	}

	return role, nil
}
