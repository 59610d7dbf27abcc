package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
)

func (s *MongoStore) ListClaims(ctx context.Context, userID model.ID) ([]model.ClaimValue, error) {
	cursor, err := s.claims.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}

	var claims []model.Claim
	if err := cursor.All(ctx, &claims); err != nil {
		return nil, err
	}

	values := make([]model.ClaimValue, 0, len(claims))
	for _, c := range claims {
		values = append(values, model.ClaimValue{Type: c.Type, Value: c.Value})
	}

	return values, nil
}

func (s *MongoStore) AddClaims(ctx context.Context, userID model.ID, claims []model.ClaimValue) error {
	if len(claims) == 0 {
		return nil
	}

	docs := make([]any, 0, len(claims))
	for _, c := range claims {
		docs = append(docs, model.Claim{
			ID:     model.NewID(),
			UserID: userID,
			Type:   c.Type,
			Value:  c.Value,
		})
	}

	if _, err := s.claims.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert claims: %w", translateError(err))
	}

	return nil
}

func (s *MongoStore) ReplaceClaim(ctx context.Context, userID model.ID, claim, newClaim model.ClaimValue) error {
	_, err := s.claims.UpdateMany(ctx, bson.M{
		"user_id": userID,
		"type":    claim.Type,
		"value":   claim.Value,
	}, bson.M{"$set": bson.M{
		"type":  newClaim.Type,
		"value": newClaim.Value,
	}})

	return err
}

func (s *MongoStore) RemoveClaims(ctx context.Context, userID model.ID, claims []model.ClaimValue) error {
	for _, c := range claims {
		if _, err := s.claims.DeleteMany(ctx, bson.M{
			"user_id": userID,
			"type":    c.Type,
			"value":   c.Value,
		}); err != nil {
			return err
		}
	}

	return nil
}

func (s *MongoStore) GetUsersForClaim(ctx context.Context, claim model.ClaimValue) ([]*model.User, error) {
	cursor, err := s.claims.Find(ctx, bson.M{"type": claim.Type, "value": claim.Value})
	if err != nil {
		return nil, err
	}

	var claims []model.Claim
	if err := cursor.All(ctx, &claims); err != nil {
		return nil, err
	}

	seen := make(map[model.ID]bool, len(claims))
	ids := make([]model.ID, 0, len(claims))
	for _, c := range claims {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}

	return s.findUsers(ctx, ids)
}
