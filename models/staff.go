package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Staff is the public profile of a venue team member shown on the site.
type Staff struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	UserID    *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Name      string         `gorm:"not null" json:"name"`
	Position  string         `json:"position"` // bartender, manager, dj
	Bio       string         `json:"bio"`
	PhotoURL  string         `json:"photo_url"`
	IsActive  bool           `gorm:"index" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
