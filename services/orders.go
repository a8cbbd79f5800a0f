package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taproom-backend/events"
	"taproom-backend/models"
	"taproom-backend/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	MaxOrderLines   = 20
	MaxLineQuantity = 10
)

type OrderLineInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required"`
}

type CreateOrderInput struct {
	Items       []OrderLineInput `json:"items"`
	TableNumber string           `json:"table_number"`
	Notes       string           `json:"notes"`
}

type TransitionInput struct {
	Status   models.OrderStatus
	Reason   string
	Discount *decimal.Decimal
	ActorID  *uuid.UUID
}

type OrderFilter struct {
	UserID *uuid.UUID
	Status models.OrderStatus
	Since  *time.Time
	Page   int
	Limit  int
}

type OrderService struct {
	DB     *gorm.DB
	Events events.Publisher
	Mailer notify.Mailer
}

func NewOrderService(db *gorm.DB, pub events.Publisher, mailer notify.Mailer) *OrderService {
	return &OrderService{DB: db, Events: pub, Mailer: mailer}
}

// mergeLines validates line count and quantities and folds duplicate
// products into one line, keeping first-seen order.
func mergeLines(lines []OrderLineInput) ([]OrderLineInput, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}
	if len(lines) > MaxOrderLines {
		return nil, fmt.Errorf("%w: at most %d items per order", ErrInvalidQuantity, MaxOrderLines)
	}

	index := make(map[uuid.UUID]int)
	var merged []OrderLineInput
	for _, l := range lines {
		if l.Quantity < 1 || l.Quantity > MaxLineQuantity {
			return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidQuantity, MaxLineQuantity)
		}
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			if merged[i].Quantity > MaxLineQuantity {
				return nil, fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalidQuantity, MaxLineQuantity)
			}
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

// Create prices the order from the live catalog. Totals and points are
// computed here and never taken from the client.
func (s *OrderService) Create(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (*models.Order, error) {
	lines, err := mergeLines(in.Items)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		UserID:      userID,
		Status:      models.OrderStatusPending,
		TableNumber: strings.TrimSpace(in.TableNumber),
		Notes:       strings.TrimSpace(in.Notes),
		Discount:    decimal.Zero,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]uuid.UUID, len(lines))
		for i, l := range lines {
			ids[i] = l.ProductID
		}

		var products []models.Product
		if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		subtotal := decimal.Zero
		points := 0
		for _, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok || !p.IsAvailable {
				return fmt.Errorf("%w: %s", ErrProductUnavailable, l.ProductID)
			}
			lineTotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
			subtotal = subtotal.Add(lineTotal)
			points += p.Points * l.Quantity

			order.Items = append(order.Items, models.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    l.Quantity,
				UnitPrice:   p.Price,
				UnitPoints:  p.Points,
				Subtotal:    lineTotal,
			})
		}

		order.Subtotal = subtotal.Round(2)
		order.Total = order.Subtotal
		order.PointsToEarn = points

		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}

	events.PublishAsync(s.Events, events.OrderCreated, orderEvent(&order, ""))
	return &order, nil
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Preload("Items").Preload("User").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetForUser loads the order when the caller may see it: its owner or staff.
func (s *OrderService) GetForUser(ctx context.Context, id, userID uuid.UUID, staff bool) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !staff && order.UserID != userID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	query := s.DB.WithContext(ctx).Model(&models.Order{})
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Since != nil {
		query = query.Where("updated_at > ?", *f.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.Preload("Items").Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error
	return orders, total, err
}

// History returns the status changes of an order, oldest first.
func (s *OrderService) History(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusChange, error) {
	var changes []models.OrderStatusChange
	err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&changes).Error
	return changes, err
}

// Transition moves an order along the status workflow. Requesting the
// current status is a no-op. Points are credited exactly once, when the
// order first reaches a fulfilled state.
func (s *OrderService) Transition(ctx context.Context, orderID uuid.UUID, in TransitionInput) (*models.Order, error) {
	return s.transition(ctx, orderID, in, nil)
}

// CancelByCustomer lets the owner withdraw an order that staff have not yet
// picked up.
func (s *OrderService) CancelByCustomer(ctx context.Context, userID, orderID uuid.UUID, reason string) (*models.Order, error) {
	in := TransitionInput{Status: models.OrderStatusCancelled, Reason: reason, ActorID: &userID}
	return s.transition(ctx, orderID, in, func(o *models.Order) error {
		if o.UserID != userID {
			return ErrForbidden
		}
		if o.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: only pending orders can be cancelled", ErrInvalidTransition)
		}
		return nil
	})
}

func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, in TransitionInput, guard func(*models.Order) error) (*models.Order, error) {
	if !models.IsKnownStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, in.Status)
	}

	var (
		order    models.Order
		from     models.OrderStatus
		changed  bool
		credited int
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		from = order.Status

		if guard != nil {
			if err := guard(&order); err != nil {
				return err
			}
		}
		if order.Status == in.Status {
			if in.Discount != nil {
				return fmt.Errorf("%w: discount can only be set when approving", ErrInvalidDiscount)
			}
			return nil
		}
		if !models.IsValidTransition(order.Status, in.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, in.Status)
		}
		reason := strings.TrimSpace(in.Reason)
		if in.Status == models.OrderStatusRejected && reason == "" {
			return ErrReasonRequired
		}

		updates := map[string]interface{}{
			"status":     in.Status,
			"updated_at": time.Now(),
		}
		if in.Status == models.OrderStatusRejected {
			updates["rejection_reason"] = reason
		}

		if in.Discount != nil {
			if in.Status != models.OrderStatusApproved {
				return fmt.Errorf("%w: discount can only be set when approving", ErrInvalidDiscount)
			}
			if in.Discount.IsNegative() {
				return fmt.Errorf("%w: discount must not be negative", ErrInvalidDiscount)
			}
			discount := in.Discount.Round(2)
			total := order.Subtotal.Sub(discount)
			if total.IsNegative() {
				total = decimal.Zero
			}
			updates["discount"] = discount
			updates["total"] = total
		}

		credit := in.Status.IsFulfilled() && order.PointsEarned == 0 && order.PointsToEarn > 0
		query := tx.Model(&models.Order{}).Where("id = ? AND status = ?", order.ID, order.Status)
		if credit {
			query = query.Where("points_earned = ?", 0)
			updates["points_earned"] = order.PointsToEarn
		}
		res := query.UpdateColumns(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}

		if credit {
			n, err := creditOrder(tx, &order)
			if err != nil {
				return err
			}
			credited = n
		}

		change := models.OrderStatusChange{
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   in.Status,
			ActorID:    in.ActorID,
			Reason:     reason,
		}
		if err := tx.Create(&change).Error; err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.afterTransition(fresh, from, credited)
	}
	return fresh, nil
}

// creditOrder writes the earned entry for points_to_earn and, when the
// customer's tier (measured before this credit) carries a multiplier, a
// separate bonus entry. Returns the total credited.
func creditOrder(tx *gorm.DB, order *models.Order) (int, error) {
	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", order.UserID).Error; err != nil {
		return 0, err
	}
	tiers, err := LoadTiers(tx)
	if err != nil {
		return 0, err
	}
	tier := ComputeTier(user.LifetimePoints, tiers).Current

	earned := &models.PointTransaction{
		UserID:      order.UserID,
		Points:      order.PointsToEarn,
		Type:        models.PointsEarned,
		Description: "Order " + order.OrderNumber,
		OrderID:     &order.ID,
	}
	if err := applyPoints(tx, earned); err != nil {
		return 0, err
	}
	total := earned.Points

	if bonus := BonusPoints(order.PointsToEarn, tier.Multiplier); bonus > 0 {
		entry := &models.PointTransaction{
			UserID:      order.UserID,
			Points:      bonus,
			Type:        models.PointsBonus,
			Description: fmt.Sprintf("%s tier bonus x%g on order %s", tier.Name, tier.Multiplier, order.OrderNumber),
			OrderID:     &order.ID,
		}
		if err := applyPoints(tx, entry); err != nil {
			return 0, err
		}
		total += bonus
	}
	return total, nil
}

func (s *OrderService) afterTransition(order *models.Order, from models.OrderStatus, credited int) {
	events.PublishAsync(s.Events, events.OrderStatusChanged, orderEvent(order, from))

	notify.SendTemplateAsync(s.Mailer, order.User.Email, notify.TemplateOrderStatus, notify.OrderStatusData{
		Name:         order.User.Name,
		OrderNumber:  order.OrderNumber,
		Status:       string(order.Status),
		Reason:       order.RejectionReason,
		Total:        order.Total.StringFixed(2),
		PointsEarned: credited,
	})
}

func orderEvent(o *models.Order, from models.OrderStatus) events.OrderEvent {
	return events.OrderEvent{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		UserID:       o.UserID,
		FromStatus:   string(from),
		ToStatus:     string(o.Status),
		Total:        o.Total.StringFixed(2),
		PointsEarned: o.PointsEarned,
		OccurredAt:   time.Now(),
	}
}
