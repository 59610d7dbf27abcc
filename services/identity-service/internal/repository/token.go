package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
)

func tokenKey(userID model.ID, provider, name string) bson.M {
	return bson.M{
		"user_id":  userID,
		"provider": provider,
		"name":     name,
	}
}

// SetToken upserts on the unique (user_id, provider, name) index. Two concurrent
// first writes can both miss and race on the insert; the loser retries as a plain update.
func (s *MongoStore) SetToken(ctx context.Context, userID model.ID, provider, name, value string) error {
	update := bson.M{
		"$set":         bson.M{"value": value},
		"$setOnInsert": bson.M{"_id": model.NewID()},
	}

	_, err := s.tokens.UpdateOne(ctx, tokenKey(userID, provider, name), update, options.UpdateOne().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		_, err = s.tokens.UpdateOne(ctx, tokenKey(userID, provider, name), bson.M{"$set": bson.M{"value": value}})
	}
	if err != nil {
		return fmt.Errorf("set token: %w", err)
	}

	return nil
}

func (s *MongoStore) GetToken(ctx context.Context, userID model.ID, provider, name string) (string, error) {
	var token model.Token
	if err := s.tokens.FindOne(ctx, tokenKey(userID, provider, name)).Decode(&token); err != nil {
		return "", translateError(err)
	}

	return token.Value, nil
}

func (s *MongoStore) RemoveToken(ctx context.Context, userID model.ID, provider, name string) error {
	_, err := s.tokens.DeleteOne(ctx, tokenKey(userID, provider, name))

	return err
}

func (s *MongoStore) CompareAndSwapToken(
	ctx context.Context,
	userID model.ID,
	provider, name, current, next string,
) (bool, error) {
	filter := tokenKey(userID, provider, name)
	filter["value"] = current

	result, err := s.tokens.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"value": next}})
	if err != nil {
		return false, fmt.Errorf("compare and swap token: %w", err)
	}

	return result.MatchedCount == 1, nil
}
