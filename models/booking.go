package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID          uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	User        User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ServiceID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"service_id"`
	Service     Service       `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	ScheduledAt time.Time     `gorm:"not null;index" json:"scheduled_at"`
	PartySize   int           `gorm:"not null;default:1" json:"party_size"`
	Notes       string        `json:"notes"`
	Status      BookingStatus `gorm:"not null;default:pending;index" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

func IsValidBookingTransition(from, to BookingStatus) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
