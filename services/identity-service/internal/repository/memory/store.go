// Package memory provides an in-process storage engine with the same contract as the
// MongoDB store. Every operation is atomic under a single mutex, standing in for the
// document-level atomicity of the real engine.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
)

type tokenKey struct {
	userID   model.ID
	provider string
	name     string
}

type loginKey struct {
	provider    string
	providerKey string
}

// Store is an in-memory repository.CredentialStore.
type Store struct {
	mu sync.Mutex

	uniqueUserName bool
	uniqueEmail    bool

	users     map[model.ID]*model.User
	roles     map[model.ID]*model.Role
	claims    []model.Claim
	logins    map[loginKey]model.Login
	tokens    map[tokenKey]string
	userRoles []model.UserRole
}

var _ repository.CredentialStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithUniqueUserName rejects creation of a second user with the same normalized user name.
func WithUniqueUserName() Option {
	return func(s *Store) { s.uniqueUserName = true }
}

// WithUniqueEmail rejects creation of a second user with the same non-empty normalized email.
func WithUniqueEmail() Option {
	return func(s *Store) { s.uniqueEmail = true }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		users:  make(map[model.ID]*model.User),
		roles:  make(map[model.ID]*model.Role),
		logins: make(map[loginKey]model.Login),
		tokens: make(map[tokenKey]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if s.uniqueUserName && existing.NormalizedUserName == user.NormalizedUserName {
			return fmt.Errorf("insert user: %w", repository.ErrConflict)
		}
		if s.uniqueEmail && user.NormalizedEmail != "" && existing.NormalizedEmail == user.NormalizedEmail {
			return fmt.Errorf("insert user: %w", repository.ErrConflict)
		}
	}

	user.ID = model.NewID()
	user.ConcurrencyStamp = uuid.NewString()
	s.users[user.ID] = user.Clone()

	return nil
}

func (s *Store) Update(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok || stored.ConcurrencyStamp != user.ConcurrencyStamp {
		return repository.ErrConcurrencyConflict
	}

	user.ConcurrencyStamp = uuid.NewString()
	s.users[user.ID] = user.Clone()

	return nil
}

func (s *Store) Delete(_ context.Context, id model.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, id)

	claims := s.claims[:0]
	for _, c := range s.claims {
		if c.UserID != id {
			claims = append(claims, c)
		}
	}
	s.claims = claims

	for k, l := range s.logins {
		if l.UserID == id {
			delete(s.logins, k)
		}
	}

	for k := range s.tokens {
		if k.userID == id {
			delete(s.tokens, k)
		}
	}

	memberships := s.userRoles[:0]
	for _, m := range s.userRoles {
		if m.UserID != id {
			memberships = append(memberships, m)
		}
	}
	s.userRoles = memberships

	return nil
}

func (s *Store) FindByID(_ context.Context, id model.ID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.userByID(id)
}

func (s *Store) FindByNormalizedUserName(_ context.Context, normalizedUserName string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findUser(func(u *model.User) bool { return u.NormalizedUserName == normalizedUserName })
}

func (s *Store) FindByNormalizedEmail(_ context.Context, normalizedEmail string) (*model.User, error) {
	if normalizedEmail == "" {
		return nil, repository.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.findUser(func(u *model.User) bool { return u.NormalizedEmail == normalizedEmail })
}

func (s *Store) userByID(id model.ID) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	return u.Clone(), nil
}

func (s *Store) findUser(match func(*model.User) bool) (*model.User, error) {
	for _, u := range s.users {
		if match(u) {
			return u.Clone(), nil
		}
	}

	return nil, repository.ErrNotFound
}

func (s *Store) usersByID(ids []model.ID) []*model.User {
	users := make([]*model.User, 0, len(ids))
	seen := make(map[model.ID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if u, ok := s.users[id]; ok {
			users = append(users, u.Clone())
		}
	}

	return users
}
