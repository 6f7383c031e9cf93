package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleFilms     Role = "films"
	RolePeople    Role = "people"
	RoleLocations Role = "locations"
	RoleSpecies   Role = "species"
	RoleVehicles  Role = "vehicles"
)

// DefaultRole is assigned when a create request names no role.
const DefaultRole = RoleFilms

// Roles lists every accepted role in declaration order.
var Roles = []Role{RoleAdmin, RoleFilms, RolePeople, RoleLocations, RoleSpecies, RoleVehicles}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	HashedPassword string    `gorm:"type:varchar(255);not null" json:"-"` // Never expose password hash in JSON
	Role           Role      `gorm:"type:varchar(20);not null" json:"role"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	IsSuperuser    bool      `gorm:"not null" json:"is_superuser"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate assigns the identifier in Go so Postgres and SQLite behave the same.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// BootstrapMarker is a single-row table. Its fixed primary key makes the
// "first user becomes superuser" insert succeed at most once.
type BootstrapMarker struct {
	ID        int       `gorm:"primaryKey;autoIncrement:false"`
	UserID    uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

const BootstrapMarkerID = 1

// UserCreate is the create-user request body.
type UserCreate struct {
	Username    string `json:"username" binding:"required,min=1,max=50"`
	Password    string `json:"password" binding:"required,min=1,max=72"`
	Role        Role   `json:"role" binding:"omitempty,role"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UserUpdate is the partial update body. Nil fields are left untouched.
type UserUpdate struct {
	Username *string `json:"username" binding:"omitempty,min=1,max=50"`
	Password *string `json:"password" binding:"omitempty,min=1,max=72"`
	Role     *Role   `json:"role" binding:"omitempty,role"`
	IsActive *bool   `json:"is_active"`
}

func (u UserUpdate) IsEmpty() bool {
	return u.Username == nil && u.Password == nil && u.Role == nil && u.IsActive == nil
}
