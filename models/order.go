package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User            User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OrderNumber     string          `gorm:"uniqueIndex;not null" json:"order_number"`
	Status          OrderStatus     `gorm:"not null;default:pending;index" json:"status"`
	TableNumber     string          `json:"table_number"`
	Notes           string          `json:"notes"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	Discount        decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"discount"`
	Total           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total"`
	PointsToEarn    int             `gorm:"not null;default:0" json:"points_to_earn"`
	PointsEarned    int             `gorm:"not null;default:0" json:"points_earned"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     Product         `gorm:"foreignKey:ProductID" json:"-"`
	ProductName string          `json:"product_name"` // snapshot at order time
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	UnitPoints  int             `gorm:"not null;default:0" json:"unit_points"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderStatusChange is written in the same transaction as every status update.
type OrderStatusChange struct {
	ID         uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	OrderID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"order_id"`
	FromStatus OrderStatus `gorm:"not null" json:"from_status"`
	ToStatus   OrderStatus `gorm:"not null" json:"to_status"`
	ActorID    *uuid.UUID  `gorm:"type:uuid" json:"actor_id,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = "ORD" + time.Now().Format("20060102150405") + o.ID.String()[:6]
	}
	return nil
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (c *OrderStatusChange) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// AllowedTransitions defines the valid order status state machine.
var AllowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusApproved, OrderStatusRejected, OrderStatusCancelled},
	OrderStatusApproved:  {OrderStatusPreparing, OrderStatusRejected, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusCompleted, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusCompleted: {OrderStatusDelivered},
	OrderStatusDelivered: {},
	OrderStatusRejected:  {},
	OrderStatusCancelled: {},
}

// IsValidTransition checks if a status transition is allowed.
func IsValidTransition(from, to OrderStatus) bool {
	allowed, exists := AllowedTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsKnownStatus reports whether s names a status of the order workflow.
func IsKnownStatus(s OrderStatus) bool {
	_, ok := AllowedTransitions[s]
	return ok
}

// IsFulfilled reports whether reaching s credits the order's points.
func (s OrderStatus) IsFulfilled() bool {
	return s == OrderStatusCompleted || s == OrderStatusDelivered
}

// IsTerminal reports whether no further transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return len(AllowedTransitions[s]) == 0
}
