package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is a bookable venue offering such as a table reservation or a
// private room.
type Service struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Name            string          `gorm:"not null" json:"name"`
	Description     string          `json:"description"`
	ImageURL        string          `json:"image_url"`
	Price           decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"price"`
	DurationMinutes int             `gorm:"not null;default:60" json:"duration_minutes"`
	Capacity        int             `gorm:"not null;default:1" json:"capacity"`
	IsActive        bool            `gorm:"index" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
