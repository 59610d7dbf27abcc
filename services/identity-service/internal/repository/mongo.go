package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionNames names the collections used by MongoStore.
type CollectionNames struct {
	Users      string
	Roles      string
	UserClaims string
	UserLogins string
	UserTokens string
	UserRoles  string
}

// DefaultCollectionNames returns the collection names used when none are configured.
func DefaultCollectionNames() CollectionNames {
	return CollectionNames{
		Users:      "users",
		Roles:      "roles",
		UserClaims: "user_claims",
		UserLogins: "user_logins",
		UserTokens: "user_tokens",
		UserRoles:  "user_roles",
	}
}

// MongoStoreOptions configures a MongoStore. It is built once at startup.
type MongoStoreOptions struct {
	Collections CollectionNames
	// UniqueUserName enforces a unique index on the normalized user name.
	UniqueUserName bool
	// UniqueEmail enforces a unique index on the normalized email, ignoring empty emails.
	UniqueEmail bool
}

// MongoStore is the MongoDB storage engine. It implements every repository capability.
type MongoStore struct {
	users     *mongo.Collection
	roles     *mongo.Collection
	claims    *mongo.Collection
	logins    *mongo.Collection
	tokens    *mongo.Collection
	userRoles *mongo.Collection
	logger    *zerolog.Logger
}

var _ CredentialStore = (*MongoStore)(nil)

// NewMongoStore creates the store and ensures its indexes exist.
func NewMongoStore(
	ctx context.Context,
	logger *zerolog.Logger,
	db *mongo.Database,
	opts MongoStoreOptions,
) (*MongoStore, error) {
	names := opts.Collections
	defaults := DefaultCollectionNames()
	if names.Users == "" {
		names.Users = defaults.Users
	}
	if names.Roles == "" {
		names.Roles = defaults.Roles
	}
	if names.UserClaims == "" {
		names.UserClaims = defaults.UserClaims
	}
	if names.UserLogins == "" {
		names.UserLogins = defaults.UserLogins
	}
	if names.UserTokens == "" {
		names.UserTokens = defaults.UserTokens
	}
	if names.UserRoles == "" {
		names.UserRoles = defaults.UserRoles
	}

	s := &MongoStore{
		users:     db.Collection(names.Users),
		roles:     db.Collection(names.Roles),
		claims:    db.Collection(names.UserClaims),
		logins:    db.Collection(names.UserLogins),
		tokens:    db.Collection(names.UserTokens),
		userRoles: db.Collection(names.UserRoles),
		logger:    logger,
	}

	if err := s.createIndexes(ctx, opts); err != nil {
		return nil, fmt.Errorf("create credential store indexes: %w", err)
	}

	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context, opts MongoStoreOptions) error {
	userNameIndex := options.Index()
	if opts.UniqueUserName {
		userNameIndex.SetUnique(true)
	}
	emailIndex := options.Index()
	if opts.UniqueEmail {
		emailIndex.SetUnique(true).
			SetPartialFilterExpression(bson.M{"normalized_email": bson.M{"$gt": ""}})
	}

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			{Keys: bson.D{{Key: "normalized_user_name", Value: 1}}, Options: userNameIndex},
			{Keys: bson.D{{Key: "normalized_email", Value: 1}}, Options: emailIndex},
		},
		s.roles: {
			{Keys: bson.D{{Key: "normalized_name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.claims: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "type", Value: 1}, {Key: "value", Value: 1}}},
		},
		s.logins: {
			{
				Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "provider_key", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		s.tokens: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "provider", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		s.userRoles: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "role_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "role_id", Value: 1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := collection.Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}

	return nil
}

// translateError maps driver errors onto the repository taxonomy.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return errors.Join(ErrConflict, err)
	default:
		return err
	}
}
