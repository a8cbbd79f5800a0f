package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RedemptionStatus string

const (
	RedemptionPending RedemptionStatus = "pending"
	RedemptionUsed    RedemptionStatus = "used"
)

type Redemption struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	User        User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RewardID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"reward_id"`
	Reward      Reward           `gorm:"foreignKey:RewardID" json:"reward,omitempty"`
	PointsSpent int              `gorm:"not null" json:"points_spent"`
	Code        string           `gorm:"uniqueIndex;not null" json:"code"`
	Status      RedemptionStatus `gorm:"not null;default:pending;index" json:"status"`
	UsedAt      *time.Time       `json:"used_at"`
	ValidatedBy *uuid.UUID       `gorm:"type:uuid" json:"validated_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (r *Redemption) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
