package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PointTransactionType string

const (
	PointsEarned     PointTransactionType = "earned"
	PointsRedeemed   PointTransactionType = "redeemed"
	PointsBonus      PointTransactionType = "bonus"
	PointsAdjustment PointTransactionType = "adjustment"
)

// PointTransaction is one row of the append-only points ledger. The sum of
// Points per user equals User.CurrentPoints.
type PointTransaction struct {
	ID           uuid.UUID            `gorm:"type:uuid;primary_key" json:"id"`
	UserID       uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"`
	User         User                 `gorm:"foreignKey:UserID" json:"-"`
	Points       int                  `gorm:"not null" json:"points"`
	Type         PointTransactionType `gorm:"not null;index" json:"type"`
	Description  string               `json:"description"`
	OrderID      *uuid.UUID           `gorm:"type:uuid;index" json:"order_id,omitempty"`
	RedemptionID *uuid.UUID           `gorm:"type:uuid;index" json:"redemption_id,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

func (p *PointTransaction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
