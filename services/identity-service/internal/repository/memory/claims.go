package memory

import (
	"context"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
)

func (s *Store) ListClaims(_ context.Context, userID model.ID) ([]model.ClaimValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := []model.ClaimValue{}
	for _, c := range s.claims {
		if c.UserID == userID {
			values = append(values, model.ClaimValue{Type: c.Type, Value: c.Value})
		}
	}

	return values, nil
}

func (s *Store) AddClaims(_ context.Context, userID model.ID, claims []model.ClaimValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range claims {
		s.claims = append(s.claims, model.Claim{
			ID:     model.NewID(),
			UserID: userID,
			Type:   c.Type,
			Value:  c.Value,
		})
	}

	return nil
}

func (s *Store) ReplaceClaim(_ context.Context, userID model.ID, claim, newClaim model.ClaimValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.claims {
		if c.UserID == userID && c.Type == claim.Type && c.Value == claim.Value {
			s.claims[i].Type = newClaim.Type
			s.claims[i].Value = newClaim.Value
		}
	}

	return nil
}

func (s *Store) RemoveClaims(_ context.Context, userID model.ID, claims []model.ClaimValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remove := make(map[model.ClaimValue]bool, len(claims))
	for _, c := range claims {
		remove[c] = true
	}

	kept := s.claims[:0]
	for _, c := range s.claims {
		if c.UserID == userID && remove[model.ClaimValue{Type: c.Type, Value: c.Value}] {
			continue
		}
		kept = append(kept, c)
	}
	s.claims = kept

	return nil
}

func (s *Store) GetUsersForClaim(_ context.Context, claim model.ClaimValue) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []model.ID
	for _, c := range s.claims {
		if c.Type == claim.Type && c.Value == claim.Value {
			ids = append(ids, c.UserID)
		}
	}

	return s.usersByID(ids), nil
}
