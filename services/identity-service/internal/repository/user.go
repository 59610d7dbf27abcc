package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
)

func (s *MongoStore) Create(ctx context.Context, user *model.User) error {
	user.ID = model.NewID()
	user.ConcurrencyStamp = uuid.NewString()

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("insert user: %w", translateError(err))
	}

	return nil
}

// Update writes the full record. The stamp check uses the matched count: an
// acknowledged replace that matched nothing is a conflict.
func (s *MongoStore) Update(ctx context.Context, user *model.User) error {
	current := user.ConcurrencyStamp
	user.ConcurrencyStamp = uuid.NewString()

	result, err := s.users.ReplaceOne(ctx, bson.M{
		"_id":               user.ID,
		"concurrency_stamp": current,
	}, user)
	if err != nil {
		user.ConcurrencyStamp = current
		return fmt.Errorf("replace user: %w", translateError(err))
	}

	if result.MatchedCount == 0 {
		user.ConcurrencyStamp = current
		s.logger.Debug().Str("user_id", user.ID.Hex()).Msg("concurrency stamp mismatch on user update")
		return ErrConcurrencyConflict
	}

	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id model.ID) error {
	owned := bson.M{"user_id": id}
	for _, collection := range []*mongo.Collection{s.claims, s.logins, s.tokens, s.userRoles} {
		if _, err := collection.DeleteMany(ctx, owned); err != nil {
			return fmt.Errorf("delete %s of user: %w", collection.Name(), err)
		}
	}

	if _, err := s.users.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, id model.ID) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindByNormalizedUserName(ctx context.Context, normalizedUserName string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"normalized_user_name": normalizedUserName})
}

func (s *MongoStore) FindByNormalizedEmail(ctx context.Context, normalizedEmail string) (*model.User, error) {
	if normalizedEmail == "" {
		return nil, ErrNotFound
	}

	return s.findUser(ctx, bson.M{"normalized_email": normalizedEmail})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translateError(err)
	}

	return &user, nil
}

func (s *MongoStore) findUsers(ctx context.Context, ids []model.ID) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]*model.User, 0, len(ids))
	for cursor.Next(ctx) {
		var user model.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
