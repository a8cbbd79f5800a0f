package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Reward struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	ImageURL    string         `json:"image_url"`
	PointsCost  int            `gorm:"not null" json:"points_cost"`
	Stock       int            `gorm:"not null;default:0" json:"stock"`
	IsActive    bool           `gorm:"index" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Reward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
