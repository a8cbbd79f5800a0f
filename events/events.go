// Package events publishes domain events so other processes (the admin
// dashboard relay, analytics) can react without polling.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated         = "order.created"
	OrderStatusChanged   = "order.status_changed"
	RedemptionCreated    = "redemption.created"
	RedemptionUsed       = "redemption.used"
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
	PointsAdjusted       = "points.adjusted"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
	Close() error
}

type OrderEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	UserID       uuid.UUID `json:"user_id"`
	FromStatus   string    `json:"from_status,omitempty"`
	ToStatus     string    `json:"to_status"`
	Total        string    `json:"total"`
	PointsEarned int       `json:"points_earned"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type RedemptionEvent struct {
	RedemptionID uuid.UUID `json:"redemption_id"`
	UserID       uuid.UUID `json:"user_id"`
	RewardID     uuid.UUID `json:"reward_id"`
	Code         string    `json:"code"`
	PointsSpent  int       `json:"points_spent"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type BookingEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	UserID      uuid.UUID `json:"user_id"`
	ServiceID   uuid.UUID `json:"service_id"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type PointsEvent struct {
	UserID     uuid.UUID  `json:"user_id"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	Points     int        `json:"points"`
	Type       string     `json:"type"`
	Balance    int        `json:"balance"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
