package handlers

import (
	"net/http"
	"time"

	"taproom-backend/models"
	"taproom-backend/services"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServiceHandler serves bookable venue services and their bookings.
type ServiceHandler struct {
	DB       *gorm.DB
	Bookings *services.BookingService
}

type serviceRequest struct {
	Name            *string          `json:"name" binding:"omitempty,min=1,max=120"`
	Description     *string          `json:"description" binding:"omitempty,max=1000"`
	ImageURL        *string          `json:"image_url" binding:"omitempty,url"`
	Price           *decimal.Decimal `json:"price"`
	DurationMinutes *int             `json:"duration_minutes" binding:"omitempty,gt=0,lte=1440"`
	Capacity        *int             `json:"capacity" binding:"omitempty,gt=0,lte=500"`
	IsActive        *bool            `json:"is_active"`
}

func (r serviceRequest) apply(s *models.Service) {
	if r.Name != nil {
		s.Name = *r.Name
	}
	if r.Description != nil {
		s.Description = *r.Description
	}
	if r.ImageURL != nil {
		s.ImageURL = *r.ImageURL
	}
	if r.Price != nil {
		s.Price = r.Price.Round(2)
	}
	if r.DurationMinutes != nil {
		s.DurationMinutes = *r.DurationMinutes
	}
	if r.Capacity != nil {
		s.Capacity = *r.Capacity
	}
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
}

func (h *ServiceHandler) GetServices(c *gin.Context) {
	var list []models.Service
	if err := h.DB.Where("is_active = ?", true).Order("name ASC").Find(&list).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to fetch services")
		return
	}
	utils.OK(c, list)
}

func (h *ServiceHandler) GetService(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var svc models.Service
	if err := h.DB.Where("id = ? AND is_active = ?", id, true).First(&svc).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "Service not found")
		return
	}
	utils.OK(c, svc)
}

func (h *ServiceHandler) CreateService(c *gin.Context) {
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Name == nil {
		utils.Fail(c, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		utils.Fail(c, http.StatusBadRequest, "price must be 0 or more")
		return
	}

	svc := models.Service{DurationMinutes: 60, Capacity: 1, IsActive: true}
	req.apply(&svc)
	if err := h.DB.Create(&svc).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to create service")
		return
	}
	utils.Respond(c, http.StatusCreated, svc)
}

func (h *ServiceHandler) UpdateService(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		utils.Fail(c, http.StatusBadRequest, "price must be 0 or more")
		return
	}

	var svc models.Service
	if err := h.DB.First(&svc, "id = ?", id).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "Service not found")
		return
	}
	req.apply(&svc)
	if err := h.DB.Save(&svc).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to update service")
		return
	}
	utils.OK(c, svc)
}

func (h *ServiceHandler) DeleteService(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	res := h.DB.Model(&models.Service{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to delete service")
		return
	}
	if res.RowsAffected == 0 {
		utils.Fail(c, http.StatusNotFound, "Service not found")
		return
	}
	utils.OK(c, gin.H{"message": "Service deactivated"})
}

func (h *ServiceHandler) BookService(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	serviceID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.BookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, err := h.Bookings.Book(c.Request.Context(), userID, serviceID, req)
	if err != nil {
		respondError(c, err, "Failed to create booking")
		return
	}
	utils.Respond(c, http.StatusCreated, booking)
}

func (h *ServiceHandler) GetMyBookings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.listBookings(c, services.BookingFilter{UserID: &userID})
}

// GetBookings is the staff calendar: ?from=&to= (RFC3339), ?status=,
// ?service_id=.
func (h *ServiceHandler) GetBookings(c *gin.Context) {
	var f services.BookingFilter
	if raw := c.Query("service_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.Fail(c, http.StatusBadRequest, "Invalid service_id")
			return
		}
		f.ServiceID = &id
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.Fail(c, http.StatusBadRequest, p.name+" must be an RFC3339 timestamp")
			return
		}
		*p.dst = &t
	}
	h.listBookings(c, f)
}

func (h *ServiceHandler) listBookings(c *gin.Context, f services.BookingFilter) {
	switch status := models.BookingStatus(c.Query("status")); status {
	case "", models.BookingPending, models.BookingConfirmed, models.BookingCompleted, models.BookingCancelled:
		f.Status = status
	default:
		utils.Fail(c, http.StatusBadRequest, "Unknown status")
		return
	}
	f.Page, f.Limit = pagination(c)

	list, total, err := h.Bookings.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err, "Failed to fetch bookings")
		return
	}
	utils.OK(c, paged(list, total, f.Page, f.Limit))
}

func (h *ServiceHandler) UpdateBookingStatus(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.BookingStatus `json:"status" binding:"required,oneof=pending confirmed completed cancelled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	booking, err := h.Bookings.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err, "Failed to update booking")
		return
	}
	utils.OK(c, booking)
}

func (h *ServiceHandler) CancelBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.Bookings.CancelByCustomer(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err, "Failed to cancel booking")
		return
	}
	utils.OK(c, booking)
}
