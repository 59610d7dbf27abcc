package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-api/services/identity-service/internal/repository"
)

const AdminRole = "Admin"

// SeedOptions describes the administrator account. An empty Email disables seeding.
type SeedOptions struct {
	UserName string
	Email    string
	Password string
}

// Seeder makes sure the Admin role and an administrator holding it exist.
type Seeder struct {
	logger *zerolog.Logger
	users  *UserManager
	opts   SeedOptions
}

func NewSeeder(logger *zerolog.Logger, users *UserManager, opts SeedOptions) *Seeder {
	return &Seeder{logger: logger, users: users, opts: opts}
}

// Seed is idempotent.
func (s *Seeder) Seed(ctx context.Context) error {
	if s.opts.Email == "" {
		s.logger.Debug().Msg("admin seeding disabled")
		return nil
	}

	user, err := s.users.FindByEmail(ctx, s.opts.Email)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = s.users.Create(ctx, CreateUserParams{
			UserName:       s.opts.UserName,
			Email:          s.opts.Email,
			Password:       s.opts.Password,
			EmailConfirmed: true,
		})
	}
	if err != nil {
		return err
	}

	if _, err := s.users.CreateRole(ctx, AdminRole); err != nil {
		return err
	}

	inRole, err := s.users.IsInRole(ctx, user, AdminRole)
	if err != nil {
		return err
	}
	if !inRole {
		if err := s.users.AddToRole(ctx, user, AdminRole); err != nil {
			return err
		}
		s.logger.Info().Str("user_id", user.ID.Hex()).Msg("admin seeded")
	}

	return nil
}
