package testutil

import (
	"context"
	"testing"

	"github.com/Baaaki/ghibli-gate/internal/models"
	"github.com/Baaaki/ghibli-gate/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Hasher is a bcrypt hasher at minimum cost so tests stay fast.
var Hasher = utils.NewPasswordHasher(bcrypt.MinCost)

// CategoryPayloads is what the fake upstream serves per endpoint.
var CategoryPayloads = map[string]string{
	"/films":     `[{"id":"2baf70d1","title":"Castle in the Sky"}]`,
	"/people":    `[{"id":"ba924631","name":"Ashitaka"}]`,
	"/locations": `[{"id":"11014596","name":"Irontown"}]`,
	"/species":   `[{"id":"af3910a6","name":"Human"}]`,
	"/vehicles":  `[{"id":"4e09b023","name":"Air Destroyer Goliath"}]`,
}

// UserOption tweaks a fixture user before it is stored.
type UserOption func(*models.User)

func Superuser() UserOption {
	return func(u *models.User) { u.IsSuperuser = true }
}

func Inactive() UserOption {
	return func(u *models.User) { u.IsActive = false }
}

// CreateTestUser stores an active user with a bcrypt password.
func CreateTestUser(t *testing.T, db *gorm.DB, username, password string, role models.Role, opts ...UserOption) *models.User {
	t.Helper()

	hash, err := Hasher.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{
		Username:       username,
		HashedPassword: hash,
		Role:           role,
		IsActive:       true,
	}
	for _, opt := range opts {
		opt(user)
	}

	if err := db.WithContext(context.Background()).Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

// DefaultAdminUser stores the admin superuser (admin/admin123).
func DefaultAdminUser(t *testing.T, db *gorm.DB) *models.User {
	return CreateTestUser(t, db, "admin", "admin123", models.RoleAdmin, Superuser())
}

// DefaultRoleUser stores a role user named after its role with password test123.
func DefaultRoleUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	return CreateTestUser(t, db, string(role), "test123", role)
}
