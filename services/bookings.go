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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingInput struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	PartySize   int       `json:"party_size"`
	Notes       string    `json:"notes"`
}

type BookingFilter struct {
	UserID    *uuid.UUID
	ServiceID *uuid.UUID
	Status    models.BookingStatus
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

type BookingService struct {
	DB     *gorm.DB
	Events events.Publisher
	Mailer notify.Mailer
	Now    func() time.Time
}

func NewBookingService(db *gorm.DB, pub events.Publisher, mailer notify.Mailer) *BookingService {
	return &BookingService{DB: db, Events: pub, Mailer: mailer, Now: time.Now}
}

func (s *BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *BookingService) Book(ctx context.Context, userID, serviceID uuid.UUID, in BookingInput) (*models.Booking, error) {
	if in.PartySize == 0 {
		in.PartySize = 1
	}

	var booking models.Booking
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var svc models.Service
		if err := tx.First(&svc, "id = ?", serviceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !svc.IsActive {
			return ErrNotFound
		}
		if !in.ScheduledAt.After(s.now()) {
			return fmt.Errorf("%w: scheduled time must be in the future", ErrInvalidBooking)
		}
		if in.PartySize < 1 || in.PartySize > svc.Capacity {
			return fmt.Errorf("%w: party size must be between 1 and %d", ErrInvalidBooking, svc.Capacity)
		}

		booking = models.Booking{
			UserID:      userID,
			ServiceID:   svc.ID,
			ScheduledAt: in.ScheduledAt.UTC(),
			PartySize:   in.PartySize,
			Notes:       strings.TrimSpace(in.Notes),
			Status:      models.BookingPending,
		}
		return tx.Create(&booking).Error
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.Get(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	events.PublishAsync(s.Events, events.BookingCreated, bookingEvent(fresh))
	return fresh, nil
}

func (s *BookingService) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := s.DB.WithContext(ctx).Preload("Service").Preload("User").First(&b, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateStatus is the staff-side workflow. Same-status requests are no-ops.
func (s *BookingService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.BookingStatus) (*models.Booking, error) {
	return s.updateStatus(ctx, id, status, nil)
}

// CancelByCustomer cancels the caller's own pending or confirmed booking.
func (s *BookingService) CancelByCustomer(ctx context.Context, userID, id uuid.UUID) (*models.Booking, error) {
	return s.updateStatus(ctx, id, models.BookingCancelled, func(b *models.Booking) error {
		if b.UserID != userID {
			return ErrForbidden
		}
		return nil
	})
}

func (s *BookingService) updateStatus(ctx context.Context, id uuid.UUID, status models.BookingStatus, guard func(*models.Booking) error) (*models.Booking, error) {
	changed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if guard != nil {
			if err := guard(&b); err != nil {
				return err
			}
		}
		if b.Status == status {
			return nil
		}
		if !models.IsValidBookingTransition(b.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, status)
		}

		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status = ?", b.ID, b.Status).
			UpdateColumns(map[string]interface{}{"status": status, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		events.PublishAsync(s.Events, events.BookingStatusChanged, bookingEvent(fresh))
		notify.SendTemplateAsync(s.Mailer, fresh.User.Email, notify.TemplateBookingStatus, notify.BookingData{
			Name:        fresh.User.Name,
			ServiceName: fresh.Service.Name,
			When:        fresh.ScheduledAt.Format("Mon 2 Jan 2006 15:04"),
			PartySize:   fresh.PartySize,
			Status:      string(fresh.Status),
		})
	}
	return fresh, nil
}

func (s *BookingService) List(ctx context.Context, f BookingFilter) ([]models.Booking, int64, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	query := s.DB.WithContext(ctx).Model(&models.Booking{})
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.ServiceID != nil {
		query = query.Where("service_id = ?", *f.ServiceID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.From != nil {
		query = query.Where("scheduled_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("scheduled_at < ?", *f.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Booking
	err := query.Preload("Service").Preload("User").
		Order("scheduled_at ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&out).Error
	return out, total, err
}

func bookingEvent(b *models.Booking) events.BookingEvent {
	return events.BookingEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ServiceID:   b.ServiceID,
		Status:      string(b.Status),
		ScheduledAt: b.ScheduledAt,
		OccurredAt:  time.Now(),
	}
}
