package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Name        string          `gorm:"not null;index" json:"name"`
	Description string          `json:"description"`
	Category    string          `gorm:"index" json:"category"` // beer, cocktail, food, ...
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Points      int             `gorm:"not null;default:0" json:"points"` // points earned per unit
	IsAvailable bool            `gorm:"index" json:"is_available"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
