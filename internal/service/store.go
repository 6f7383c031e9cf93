package service

import (
	"context"

	"github.com/Baaaki/ghibli-gate/internal/models"
	"github.com/google/uuid"
)

// UserStore is the persistence the services need. *repository.UserRepository
// implements it. Getters return (nil, nil) when the user does not exist.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	CreateBootstrap(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, skip, limit int) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, user *models.User, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) (*models.User, error)
}
