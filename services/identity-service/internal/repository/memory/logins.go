package memory

import (
	"context"
	"fmt"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
)

func (s *Store) AddLogin(_ context.Context, userID model.ID, login model.LoginInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := loginKey{provider: login.Provider, providerKey: login.ProviderKey}
	if _, exists := s.logins[key]; exists {
		return fmt.Errorf("insert login: %w", repository.ErrConflict)
	}

	s.logins[key] = model.Login{
		ID:          model.NewID(),
		UserID:      userID,
		Provider:    login.Provider,
		ProviderKey: login.ProviderKey,
		DisplayName: login.DisplayName,
	}

	return nil
}

func (s *Store) RemoveLogin(_ context.Context, userID model.ID, provider, providerKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := loginKey{provider: provider, providerKey: providerKey}
	if l, ok := s.logins[key]; ok && l.UserID == userID {
		delete(s.logins, key)
	}

	return nil
}

func (s *Store) ListLogins(_ context.Context, userID model.ID) ([]model.LoginInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := []model.LoginInfo{}
	for _, l := range s.logins {
		if l.UserID == userID {
			infos = append(infos, model.LoginInfo{
				Provider:    l.Provider,
				ProviderKey: l.ProviderKey,
				DisplayName: l.DisplayName,
			})
		}
	}

	return infos, nil
}

func (s *Store) FindByLogin(_ context.Context, provider, providerKey string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logins[loginKey{provider: provider, providerKey: providerKey}]
	if !ok {
		return nil, repository.ErrNotFound
	}

	return s.userByID(l.UserID)
}
