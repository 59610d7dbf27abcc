package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/model"
)

func (s *MongoStore) CreateRole(ctx context.Context, role *model.Role) error {
	role.ID = model.NewID()
	role.NormalizedName = model.Normalize(role.Name)
	role.ConcurrencyStamp = uuid.NewString()

	if _, err := s.roles.InsertOne(ctx, role); err != nil {
		return fmt.Errorf("insert role: %w", translateError(err))
	}

	return nil
}

func (s *MongoStore) FindRoleByNormalizedName(ctx context.Context, normalizedName string) (*model.Role, error) {
	var role model.Role
	if err := s.roles.FindOne(ctx, bson.M{"normalized_name": normalizedName}).Decode(&role); err != nil {
		return nil, translateError(err)
	}

	return &role, nil
}

func (s *MongoStore) AddToRole(ctx context.Context, userID model.ID, normalizedRoleName string) error {
	role, err := s.requireRole(ctx, normalizedRoleName)
	if err != nil {
		return err
	}

	if _, err := s.userRoles.InsertOne(ctx, model.UserRole{
		ID:     model.NewID(),
		UserID: userID,
		RoleID: role.ID,
	}); err != nil {
		return fmt.Errorf("insert user role: %w", translateError(err))
	}

	return nil
}

func (s *MongoStore) RemoveFromRole(ctx context.Context, userID model.ID, normalizedRoleName string) error {
	role, err := s.requireRole(ctx, normalizedRoleName)
	if err != nil {
		return err
	}

	_, err = s.userRoles.DeleteOne(ctx, bson.M{"user_id": userID, "role_id": role.ID})

	return err
}

func (s *MongoStore) ListRoles(ctx context.Context, userID model.ID) ([]string, error) {
	cursor, err := s.userRoles.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}

	var memberships []model.UserRole
	if err := cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}

	if len(memberships) == 0 {
		return []string{}, nil
	}

	roleIDs := make([]model.ID, 0, len(memberships))
	for _, m := range memberships {
		roleIDs = append(roleIDs, m.RoleID)
	}

	cursor, err = s.roles.Find(ctx, bson.M{"_id": bson.M{"$in": roleIDs}})
	if err != nil {
		return nil, err
	}

	var roles []model.Role
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}

	return names, nil
}

func (s *MongoStore) IsInRole(ctx context.Context, userID model.ID, normalizedRoleName string) (bool, error) {
	role, err := s.FindRoleByNormalizedName(ctx, normalizedRoleName)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	count, err := s.userRoles.CountDocuments(ctx, bson.M{"user_id": userID, "role_id": role.ID})
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (s *MongoStore) ListUsersInRole(ctx context.Context, normalizedRoleName string) ([]*model.User, error) {
	role, err := s.FindRoleByNormalizedName(ctx, normalizedRoleName)
	if err != nil {
		if isNotFound(err) {
			return []*model.User{}, nil
		}
		return nil, err
	}

	cursor, err := s.userRoles.Find(ctx, bson.M{"role_id": role.ID})
	if err != nil {
		return nil, err
	}

	var memberships []model.UserRole
	if err := cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}

	userIDs := make([]model.ID, 0, len(memberships))
	for _, m := range memberships {
		userIDs = append(userIDs, m.UserID)
	}

	return s.findUsers(ctx, userIDs)
}

func (s *MongoStore) requireRole(ctx context.Context, normalizedRoleName string) (*model.Role, error) {
	role, err := s.FindRoleByNormalizedName(ctx, normalizedRoleName)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, normalizedRoleName)
		}
		return nil, err
	}

	return role, nil
}
