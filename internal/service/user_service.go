package service

import (
	"context"
	"errors"
	"time"

	"github.com/Baaaki/ghibli-gate/internal/models"
	"github.com/Baaaki/ghibli-gate/internal/repository"
	"github.com/Baaaki/ghibli-gate/internal/utils"
	"github.com/Baaaki/ghibli-gate/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pagination bounds list requests.
type Pagination struct {
	DefaultLimit int
	MaxLimit     int
}

// Normalize clamps skip to >= 0 and limit to (0, MaxLimit]; a missing or
// non-positive limit becomes DefaultLimit.
func (p Pagination) Normalize(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = p.DefaultLimit
	}
	if p.MaxLimit > 0 && limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	return skip, limit
}

type UserService struct {
	users      UserStore
	hasher     *utils.PasswordHasher
	pagination Pagination
}

func NewUserService(users UserStore, hasher *utils.PasswordHasher, pagination Pagination) *UserService {
	return &UserService{
		users:      users,
		hasher:     hasher,
		pagination: pagination,
	}
}

// Create adds a user. In an empty directory the new user becomes the admin
// superuser whatever was requested and actor may be nil. Afterwards actor must
// be a superuser.
func (s *UserService) Create(ctx context.Context, actor *models.User, in models.UserCreate) (*models.User, error) {
	logger.Log.Info("Attempting to create user",
		zap.String("username", in.Username),
		zap.String("actor", actorName(actor)),
	)

	count, err := s.users.Count(ctx)
	if err != nil {
		logger.Log.Error("Failed to count users", zap.Error(err))
		return nil, err
	}

	if count == 0 {
		user, err := s.createBootstrap(ctx, in)
		if !errors.Is(err, repository.ErrAlreadyBootstrapped) {
			return user, err
		}
		// Lost the race to another first user; fall through to the normal path.
		logger.Log.Warn("Bootstrap already taken, applying superuser rule",
			zap.String("username", in.Username),
		)
	}

	if actor == nil || !actor.IsSuperuser {
		logger.Log.Warn("Unauthorized attempt to create user",
			zap.String("username", in.Username),
			zap.String("actor", actorName(actor)),
		)
		return nil, ErrSuperuserRequired
	}

	if err := s.ensureUsernameFree(ctx, in.Username); err != nil {
		return nil, err
	}

	user, err := s.newUser(in)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			logger.Log.Warn("Username already exists", zap.String("username", in.Username))
			return nil, ErrUsernameTaken
		}
		logger.Log.Error("Failed to create user in database",
			zap.String("username", in.Username),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("User created successfully",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", user.Role.String()),
		zap.Bool("is_superuser", user.IsSuperuser),
	)
	return user, nil
}

func (s *UserService) createBootstrap(ctx context.Context, in models.UserCreate) (*models.User, error) {
	logger.Log.Info("Creating first superuser", zap.String("username", in.Username))

	in.Role = models.RoleAdmin
	in.IsSuperuser = true
	active := true
	in.IsActive = &active

	user, err := s.newUser(in)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateBootstrap(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrAlreadyBootstrapped) {
			logger.Log.Error("Failed to create first superuser",
				zap.String("username", in.Username),
				zap.Error(err),
			)
		}
		return nil, err
	}

	logger.Log.Info("First superuser created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)
	return user, nil
}

func (s *UserService) newUser(in models.UserCreate) (*models.User, error) {
	hashStart := time.Now()
	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		logger.Log.Error("Failed to hash password", zap.Error(err))
		return nil, err
	}
	logger.Log.Debug("Password hashed successfully",
		zap.Duration("hash_duration", time.Since(hashStart)),
	)

	role := in.Role
	if role == "" {
		role = models.DefaultRole
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	return &models.User{
		Username:       in.Username,
		HashedPassword: hash,
		Role:           role,
		IsActive:       active,
		IsSuperuser:    in.IsSuperuser,
	}, nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string) error {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		logger.Log.Error("Failed to check username existence",
			zap.String("username", username),
			zap.Error(err),
		)
		return err
	}
	if existing != nil {
		logger.Log.Warn("Username already exists", zap.String("username", username))
		return ErrUsernameTaken
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		logger.Log.Error("Failed to get user", zap.String("user_id", id.String()), zap.Error(err))
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		logger.Log.Error("Failed to get user", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List returns a page of users after clamping skip and limit.
func (s *UserService) List(ctx context.Context, skip, limit int) ([]*models.User, error) {
	skip, limit = s.pagination.Normalize(skip, limit)

	logger.Log.Debug("Fetching users list", zap.Int("skip", skip), zap.Int("limit", limit))

	users, err := s.users.List(ctx, skip, limit)
	if err != nil {
		logger.Log.Error("Failed to list users", zap.Error(err))
		return nil, err
	}
	return users, nil
}

// Update applies the non-nil fields of in. A new password is re-hashed.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, in models.UserUpdate) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Updating user",
		zap.String("user_id", id.String()),
		zap.String("username", user.Username),
	)

	if in.IsEmpty() {
		return user, nil
	}

	fields := make(map[string]interface{}, 4)
	if in.Username != nil && *in.Username != user.Username {
		if err := s.ensureUsernameFree(ctx, *in.Username); err != nil {
			return nil, err
		}
		fields["username"] = *in.Username
	}
	if in.Password != nil {
		logger.Log.Debug("Updating user password", zap.String("user_id", id.String()))
		hash, err := s.hasher.HashPassword(*in.Password)
		if err != nil {
			logger.Log.Error("Failed to hash password", zap.Error(err))
			return nil, err
		}
		fields["hashed_password"] = hash
	}
	if in.Role != nil {
		fields["role"] = *in.Role
	}
	if in.IsActive != nil {
		fields["is_active"] = *in.IsActive
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.users.Update(ctx, user, fields); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		logger.Log.Error("Failed to update user",
			zap.String("user_id", id.String()),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("User updated successfully",
		zap.String("user_id", id.String()),
		zap.Int("fields", len(fields)),
	)
	return user, nil
}

// Delete removes the user and returns the deleted record.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) (*models.User, error) {
	logger.Log.Info("Deleting user", zap.String("user_id", id.String()))

	user, err := s.users.Delete(ctx, id)
	if err != nil {
		logger.Log.Error("Failed to delete user", zap.String("user_id", id.String()), zap.Error(err))
		return nil, err
	}
	if user == nil {
		logger.Log.Warn("User not found for deletion", zap.String("user_id", id.String()))
		return nil, ErrUserNotFound
	}

	logger.Log.Info("User deleted successfully",
		zap.String("user_id", id.String()),
		zap.String("username", user.Username),
	)
	return user, nil
}

func actorName(actor *models.User) string {
	if actor == nil {
		return "anonymous"
	}
	return actor.Username
}
