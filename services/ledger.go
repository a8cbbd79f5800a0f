package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taproom-backend/events"
	"taproom-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// applyPoints appends entry to the ledger and moves the cached balance in the
// same statement set. Negative entries only succeed while the balance covers
// them; positive entries also grow lifetime points.
func applyPoints(tx *gorm.DB, entry *models.PointTransaction) error {
	if entry.Points == 0 {
		return nil
	}

	var res *gorm.DB
	if entry.Points < 0 {
		res = tx.Model(&models.User{}).
			Where("id = ? AND current_points >= ?", entry.UserID, -entry.Points).
			UpdateColumn("current_points", gorm.Expr("current_points + ?", entry.Points))
	} else {
		res = tx.Model(&models.User{}).
			Where("id = ?", entry.UserID).
			UpdateColumns(map[string]interface{}{
				"current_points":  gorm.Expr("current_points + ?", entry.Points),
				"lifetime_points": gorm.Expr("lifetime_points + ?", entry.Points),
			})
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if entry.Points < 0 {
			return ErrInsufficientPoints
		}
		return fmt.Errorf("user %s: %w", entry.UserID, ErrNotFound)
	}

	return tx.Create(entry).Error
}

// LoyaltyStatus is the customer-facing summary behind GET /loyalty/status.
type LoyaltyStatus struct {
	CurrentPoints  int     `json:"current_points"`
	LifetimePoints int     `json:"lifetime_points"`
	Tier           string  `json:"tier"`
	Multiplier     float64 `json:"multiplier"`
	Progress       float64 `json:"progress"`
	NextTier       string  `json:"next_tier,omitempty"`
	PointsToNext   int     `json:"points_to_next"`
	Tiers          []Tier  `json:"tiers"`
}

type LoyaltyService struct {
	DB     *gorm.DB
	Events events.Publisher
}

func NewLoyaltyService(db *gorm.DB, pub events.Publisher) *LoyaltyService {
	return &LoyaltyService{DB: db, Events: pub}
}

func (s *LoyaltyService) Status(ctx context.Context, userID uuid.UUID) (*LoyaltyStatus, error) {
	db := s.DB.WithContext(ctx)

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	tiers, err := LoadTiers(db)
	if err != nil {
		return nil, err
	}

	ts := ComputeTier(user.LifetimePoints, tiers)
	status := &LoyaltyStatus{
		CurrentPoints:  user.CurrentPoints,
		LifetimePoints: user.LifetimePoints,
		Tier:           ts.Current.Name,
		Multiplier:     ts.Current.Multiplier,
		Progress:       ts.Progress,
		PointsToNext:   ts.PointsToNext,
		Tiers:          tiers,
	}
	if ts.Next != nil {
		status.NextTier = ts.Next.Name
	}
	return status, nil
}

// History returns a page of the user's ledger, newest first.
func (s *LoyaltyService) History(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.PointTransaction, int64, error) {
	page, limit = normalizePage(page, limit)
	query := s.DB.WithContext(ctx).Model(&models.PointTransaction{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []models.PointTransaction
	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&txs).Error
	return txs, total, err
}

type AdjustInput struct {
	Points      int
	Type        models.PointTransactionType
	Description string
	ActorID     uuid.UUID
}

// Adjust appends a manual adjustment or bonus. A negative adjustment may not
// take the balance below zero.
func (s *LoyaltyService) Adjust(ctx context.Context, userID uuid.UUID, in AdjustInput) (*models.PointTransaction, error) {
	if in.Points == 0 {
		return nil, fmt.Errorf("%w: points must be non-zero", ErrInvalidQuantity)
	}
	if in.Type == "" {
		in.Type = models.PointsAdjustment
	}
	if in.Type != models.PointsAdjustment && in.Type != models.PointsBonus {
		return nil, fmt.Errorf("%w: type must be adjustment or bonus", ErrInvalidQuantity)
	}
	if in.Type == models.PointsBonus && in.Points < 0 {
		return nil, fmt.Errorf("%w: bonus must be positive", ErrInvalidQuantity)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = "Manual " + string(in.Type)
	}

	entry := &models.PointTransaction{
		UserID:      userID,
		Points:      in.Points,
		Type:        in.Type,
		Description: desc,
	}

	var balance int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := applyPoints(tx, entry); err != nil {
			return err
		}
		balance = user.CurrentPoints + in.Points
		return nil
	})
	if err != nil {
		return nil, err
	}

	var actor *uuid.UUID
	if in.ActorID != uuid.Nil {
		actor = &in.ActorID
	}
	events.PublishAsync(s.Events, events.PointsAdjusted, events.PointsEvent{
		UserID:     userID,
		ActorID:    actor,
		Points:     entry.Points,
		Type:       string(entry.Type),
		Balance:    balance,
		OccurredAt: time.Now(),
	})
	return entry, nil
}

// LedgerBalance sums the user's ledger. It must always equal the cached
// current_points column.
func LedgerBalance(db *gorm.DB, userID uuid.UUID) (int, error) {
	var sum int
	err := db.Model(&models.PointTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&sum).Error
	return sum, err
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
