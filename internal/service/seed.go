package service

import (
	"context"
	"errors"

	"github.com/Baaaki/ghibli-gate/internal/models"
	"github.com/Baaaki/ghibli-gate/internal/repository"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"go.uber.org/zap"
)

const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
	DemoPassword         = "test123"
)

// SeedOptions controls initial data provisioning.
type SeedOptions struct {
	AdminUsername string
	AdminPassword string
	// DemoUsers also creates one user per role, named after the role.
	DemoUsers bool
}

// SeedResult reports what Seed did.
type SeedResult struct {
	Created []string
	Skipped []string
}

// Seed provisions the admin superuser and optionally the demo role users.
// Existing usernames are skipped, so running it twice is harmless.
func (s *UserService) Seed(ctx context.Context, opts SeedOptions) (*SeedResult, error) {
	if opts.AdminUsername == "" {
		opts.AdminUsername = DefaultAdminUsername
	}
	if opts.AdminPassword == "" {
		opts.AdminPassword = DefaultAdminPassword
	}

	logger.Log.Info("Creating initial data",
		zap.String("admin", opts.AdminUsername),
		zap.Bool("demo_users", opts.DemoUsers),
	)

	result := &SeedResult{}

	admin, err := s.seedAdmin(ctx, opts, result)
	if err != nil {
		return result, err
	}

	if opts.DemoUsers {
		for _, role := range models.Roles {
			if role == models.RoleAdmin {
				continue
			}
			in := models.UserCreate{
				Username: string(role),
				Password: DemoPassword,
				Role:     role,
			}
			if _, err := s.Create(ctx, admin, in); err != nil {
				if errors.Is(err, ErrUsernameTaken) {
					result.Skipped = append(result.Skipped, in.Username)
					continue
				}
				logger.Log.Error("Failed to seed demo user", zap.String("username", in.Username), zap.Error(err))
				return result, err
			}
			result.Created = append(result.Created, in.Username)
		}
	}

	logger.Log.Info("Initial data created",
		zap.Strings("created", result.Created),
		zap.Strings("skipped", result.Skipped),
	)
	return result, nil
}

func (s *UserService) seedAdmin(ctx context.Context, opts SeedOptions, result *SeedResult) (*models.User, error) {
	existing, err := s.users.GetByUsername(ctx, opts.AdminUsername)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		result.Skipped = append(result.Skipped, opts.AdminUsername)
		if !existing.IsSuperuser {
			logger.Log.Warn("Seed admin exists but is not a superuser", zap.String("username", opts.AdminUsername))
		}
		return existing, nil
	}

	in := models.UserCreate{
		Username:    opts.AdminUsername,
		Password:    opts.AdminPassword,
		Role:        models.RoleAdmin,
		IsSuperuser: true,
	}

	admin, err := s.createBootstrap(ctx, in)
	if errors.Is(err, repository.ErrAlreadyBootstrapped) {
		// Directory already has users: add the admin as a regular superuser.
		admin, err = s.newUser(in)
		if err != nil {
			return nil, err
		}
		err = s.users.Create(ctx, admin)
	}
	if err != nil {
		logger.Log.Error("Failed to seed admin", zap.String("username", opts.AdminUsername), zap.Error(err))
		return nil, err
	}

	result.Created = append(result.Created, opts.AdminUsername)
	return admin, nil
}
