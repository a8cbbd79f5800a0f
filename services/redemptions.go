package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"taproom-backend/events"
	"taproom-backend/models"
	"taproom-backend/notify"
	"taproom-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const codeAttempts = 5

type RedemptionFilter struct {
	UserID *uuid.UUID
	Status models.RedemptionStatus
	Since  *time.Time
	Page   int
	Limit  int
}

type RedemptionService struct {
	DB     *gorm.DB
	Events events.Publisher
	Mailer notify.Mailer

	// NewCode is swapped in tests to force collisions.
	NewCode func() (string, error)
}

func NewRedemptionService(db *gorm.DB, pub events.Publisher, mailer notify.Mailer) *RedemptionService {
	return &RedemptionService{DB: db, Events: pub, Mailer: mailer, NewCode: utils.NewRedemptionCode}
}

// Redeem spends the reward's cost from the user's balance and takes one unit
// of stock. Both decrements are conditional so concurrent redemptions can
// never drive either below zero.
func (s *RedemptionService) Redeem(ctx context.Context, userID, rewardID uuid.UUID) (*models.Redemption, error) {
	var redemption models.Redemption
	var reward models.Reward
	var user models.User

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reward, "id = ?", rewardID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !reward.IsActive {
			return ErrNotFound
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if reward.Stock <= 0 {
			return ErrOutOfStock
		}
		if user.CurrentPoints < reward.PointsCost {
			return ErrInsufficientPoints
		}

		res := tx.Model(&models.Reward{}).
			Where("id = ? AND stock > 0", reward.ID).
			UpdateColumn("stock", gorm.Expr("stock - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOutOfStock
		}

		redemption = models.Redemption{
			UserID:      userID,
			RewardID:    reward.ID,
			PointsSpent: reward.PointsCost,
			Status:      models.RedemptionPending,
		}
		if err := s.createWithCode(tx, &redemption); err != nil {
			return err
		}

		return applyPoints(tx, &models.PointTransaction{
			UserID:       userID,
			Points:       -reward.PointsCost,
			Type:         models.PointsRedeemed,
			Description:  "Redeemed " + reward.Name,
			RedemptionID: &redemption.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	reward.Stock--
	redemption.Reward = reward
	redemption.User = user
	redemption.User.CurrentPoints -= reward.PointsCost

	events.PublishAsync(s.Events, events.RedemptionCreated, redemptionEvent(&redemption))
	notify.SendTemplateAsync(s.Mailer, user.Email, notify.TemplateRedemptionCode, notify.RedemptionData{
		Name:       user.Name,
		RewardName: reward.Name,
		Code:       redemption.Code,
		Points:     redemption.PointsSpent,
	})
	return &redemption, nil
}

// createWithCode inserts r under a freshly drawn code. The unique index on
// code is the arbiter: a collision rolls back to a savepoint and draws again,
// giving up after codeAttempts.
func (s *RedemptionService) createWithCode(tx *gorm.DB, r *models.Redemption) error {
	gen := s.NewCode
	if gen == nil {
		gen = utils.NewRedemptionCode
	}
	for i := 0; i < codeAttempts; i++ {
		code, err := gen()
		if err != nil {
			return err
		}
		r.Code = code
		if err := tx.SavePoint(codeSavepoint).Error; err != nil {
			return err
		}
		err = tx.Create(r).Error
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		if err := tx.RollbackTo(codeSavepoint).Error; err != nil {
			return err
		}
	}
	return ErrCodeExhausted
}

const codeSavepoint = "redemption_code"

// isUniqueViolation recognizes duplicate key errors from postgres and sqlite,
// with or without gorm's error translation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// MarkUsed is the one-way pending -> used step performed by staff at the bar.
// ref is either the redemption ID or its code.
func (s *RedemptionService) MarkUsed(ctx context.Context, ref string, staffID uuid.UUID) (*models.Redemption, error) {
	var redemption models.Redemption

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findRedemption(tx, ref, &redemption); err != nil {
			return err
		}
		if redemption.Status == models.RedemptionUsed {
			return ErrAlreadyUsed
		}

		now := time.Now()
		res := tx.Model(&models.Redemption{}).
			Where("id = ? AND status = ?", redemption.ID, models.RedemptionPending).
			UpdateColumns(map[string]interface{}{
				"status":       models.RedemptionUsed,
				"used_at":      now,
				"validated_by": staffID,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyUsed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.Get(ctx, redemption.ID)
	if err != nil {
		return nil, err
	}
	events.PublishAsync(s.Events, events.RedemptionUsed, redemptionEvent(fresh))
	return fresh, nil
}

func (s *RedemptionService) Get(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	var r models.Redemption
	err := s.DB.WithContext(ctx).Preload("Reward").Preload("User").First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LookupByCode lets staff check a code before marking it used.
func (s *RedemptionService) LookupByCode(ctx context.Context, code string) (*models.Redemption, error) {
	var r models.Redemption
	if err := findRedemption(s.DB.WithContext(ctx), code, &r); err != nil {
		return nil, err
	}
	return s.Get(ctx, r.ID)
}

// List backs both the customer's own history and the admin polling view.
// Since filters on created_at so pollers only receive new redemptions.
func (s *RedemptionService) List(ctx context.Context, f RedemptionFilter) ([]models.Redemption, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	query := s.DB.WithContext(ctx).Model(&models.Redemption{})
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Since != nil {
		query = query.Where("created_at > ?", *f.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Redemption
	err := query.Preload("Reward").Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&out).Error
	return out, total, err
}

func findRedemption(db *gorm.DB, ref string, out *models.Redemption) error {
	ref = strings.TrimSpace(ref)
	var err error
	if id, perr := uuid.Parse(ref); perr == nil {
		err = db.First(out, "id = ?", id).Error
	} else {
		err = db.First(out, "code = ?", strings.ToUpper(ref)).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func redemptionEvent(r *models.Redemption) events.RedemptionEvent {
	return events.RedemptionEvent{
		RedemptionID: r.ID,
		UserID:       r.UserID,
		RewardID:     r.RewardID,
		Code:         r.Code,
		PointsSpent:  r.PointsSpent,
		Status:       string(r.Status),
		OccurredAt:   time.Now(),
	}
}
