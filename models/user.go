package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Email          string         `gorm:"uniqueIndex;not null" json:"email"`
	Password       string         `gorm:"not null" json:"-"`
	Name           string         `json:"name"`
	Phone          string         `json:"phone"`
	Role           string         `gorm:"default:customer" json:"role"` // customer, staff, admin
	CurrentPoints  int            `gorm:"not null;default:0" json:"current_points"`
	LifetimePoints int            `gorm:"not null;default:0" json:"lifetime_points"`
	IsBlocked      bool           `gorm:"default:false" json:"is_blocked"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsStaff reports whether the user may operate the staff dashboard.
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff || u.Role == RoleAdmin
}
