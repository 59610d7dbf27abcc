package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
)

func (s *MongoStore) AddLogin(ctx context.Context, userID model.ID, login model.LoginInfo) error {
	if _, err := s.logins.InsertOne(ctx, model.Login{
		ID:          model.NewID(),
		UserID:      userID,
		Provider:    login.Provider,
		ProviderKey: login.ProviderKey,
		DisplayName: login.DisplayName,
	}); err != nil {
		return fmt.Errorf("insert login: %w", translateError(err))
	}

	return nil
}

func (s *MongoStore) RemoveLogin(ctx context.Context, userID model.ID, provider, providerKey string) error {
	_, err := s.logins.DeleteOne(ctx, bson.M{
		"user_id":      userID,
		"provider":     provider,
		"provider_key": providerKey,
	})

	return err
}

func (s *MongoStore) ListLogins(ctx context.Context, userID model.ID) ([]model.LoginInfo, error) {
	cursor, err := s.logins.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}

	var logins []model.Login
	if err := cursor.All(ctx, &logins); err != nil {
		return nil, err
	}

	infos := make([]model.LoginInfo, 0, len(logins))
	for _, l := range logins {
		infos = append(infos, model.LoginInfo{
			Provider:    l.Provider,
			ProviderKey: l.ProviderKey,
			DisplayName: l.DisplayName,
		})
	}

	return infos, nil
}

func (s *MongoStore) FindByLogin(ctx context.Context, provider, providerKey string) (*model.User, error) {
	var login model.Login
	if err := s.logins.FindOne(ctx, bson.M{
		"provider":     provider,
		"provider_key": providerKey,
	}).Decode(&login); err != nil {
		return nil, translateError(err)
	}

	return s.FindByID(ctx, login.UserID)
}
