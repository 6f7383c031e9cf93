package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Baaaki/ghibli-gate/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const DefaultTimeout = 5 * time.Second

var (
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrAlreadyBootstrapped = errors.New("directory already bootstrapped")
)

type UserRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewUserRepository(db *gorm.DB, timeout time.Duration) *UserRepository {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &UserRepository{db: db, timeout: timeout}
}

func (r *UserRepository) withTimeout(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	return r.db.WithContext(ctx), cancel
}

// Create inserts user in a transaction.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(user).Error
	})
	return translate(err, "create user")
}

// CreateBootstrap inserts the first user together with the bootstrap marker.
// It fails with ErrAlreadyBootstrapped if any user exists or the marker is taken,
// so two racing first-user requests cannot both succeed.
func (r *UserRepository) CreateBootstrap(ctx context.Context, user *models.User) error {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyBootstrapped
		}

		marker := &models.BootstrapMarker{ID: models.BootstrapMarkerID, UserID: user.ID}
		if err := tx.Create(marker).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyBootstrapped
			}
			return err
		}

		return tx.Create(user).Error
	})
	return translate(err, "create bootstrap user")
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	var user models.User
	err := db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	return &user, nil
}

// List returns users in creation order.
func (r *UserRepository) List(ctx context.Context, skip, limit int) ([]*models.User, error) {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	users := make([]*models.User, 0, limit)
	err := db.Order("created_at ASC").Order("id ASC").Offset(skip).Limit(limit).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// Update writes the given columns and reloads user. Keys are column names.
func (r *UserRepository) Update(ctx context.Context, user *models.User, fields map[string]interface{}) error {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(fields).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", user.ID).First(user).Error
	})
	return translate(err, "update user")
}

// Delete hard-deletes the user and returns the removed record, or nil if absent.
// Removing the last user also drops the bootstrap marker, so an empty
// directory can be bootstrapped again.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) (*models.User, error) {
	db, cancel := r.withTimeout(ctx)
	defer cancel()

	var user models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.User{}, "id = ?", id).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.User{}).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		return tx.Delete(&models.BootstrapMarker{}, "id = ?", models.BootstrapMarkerID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}

	return &user, nil
}

func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAlreadyBootstrapped):
		return ErrAlreadyBootstrapped
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateUsername
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
