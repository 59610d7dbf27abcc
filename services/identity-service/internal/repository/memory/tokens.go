package memory

import (
	"context"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
)

func (s *Store) SetToken(_ context.Context, userID model.ID, provider, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[tokenKey{userID: userID, provider: provider, name: name}] = value

	return nil
}

func (s *Store) GetToken(_ context.Context, userID model.ID, provider, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.tokens[tokenKey{userID: userID, provider: provider, name: name}]
	if !ok {
		return "", repository.ErrNotFound
	}

	return value, nil
}

func (s *Store) RemoveToken(_ context.Context, userID model.ID, provider, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, tokenKey{userID: userID, provider: provider, name: name})

	return nil
}

func (s *Store) CompareAndSwapToken(
	_ context.Context,
	userID model.ID,
	provider, name, current, next string,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tokenKey{userID: userID, provider: provider, name: name}
	value, ok := s.tokens[key]
	if !ok || value != current {
		return false, nil
	}

	s.tokens[key] = next

	return true, nil
}
