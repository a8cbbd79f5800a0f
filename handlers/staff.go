package handlers

import (
	"net/http"

	"taproom-backend/models"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StaffHandler struct {
	DB *gorm.DB
}

type staffRequest struct {
	UserID   *uuid.UUID `json:"user_id"`
	Name     *string    `json:"name" binding:"omitempty,min=1,max=100"`
	Position *string    `json:"position" binding:"omitempty,max=60"`
	Bio      *string    `json:"bio" binding:"omitempty,max=2000"`
	PhotoURL *string    `json:"photo_url" binding:"omitempty,url"`
	IsActive *bool      `json:"is_active"`
}

func (r staffRequest) apply(s *models.Staff) {
	if r.UserID != nil {
		s.UserID = r.UserID
	}
	if r.Name != nil {
		s.Name = *r.Name
	}
	if r.Position != nil {
		s.Position = *r.Position
	}
	if r.Bio != nil {
		s.Bio = *r.Bio
	}
	if r.PhotoURL != nil {
		s.PhotoURL = *r.PhotoURL
	}
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
}

func (h *StaffHandler) GetStaff(c *gin.Context) {
	var list []models.Staff
	if err := h.DB.Where("is_active = ?", true).Order("name ASC").Find(&list).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to fetch staff")
		return
	}
	utils.OK(c, list)
}

func (h *StaffHandler) GetStaffMember(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var member models.Staff
	if err := h.DB.Where("id = ? AND is_active = ?", id, true).First(&member).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "Staff member not found")
		return
	}
	utils.OK(c, member)
}

// validLink checks that a linked account exists and may work the bar.
func (h *StaffHandler) validLink(c *gin.Context, userID *uuid.UUID) bool {
	if userID == nil {
		return true
	}
	var user models.User
	if err := h.DB.First(&user, "id = ?", *userID).Error; err != nil {
		utils.Fail(c, http.StatusBadRequest, "Linked user not found")
		return false
	}
	if !user.IsStaff() {
		utils.Fail(c, http.StatusBadRequest, "Linked user must have the staff or admin role")
		return false
	}
	return true
}

func (h *StaffHandler) CreateStaff(c *gin.Context) {
	var req staffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Name == nil {
		utils.Fail(c, http.StatusBadRequest, "name is required")
		return
	}
	if !h.validLink(c, req.UserID) {
		return
	}

	member := models.Staff{IsActive: true}
	req.apply(&member)
	if err := h.DB.Create(&member).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to create staff member")
		return
	}
	utils.Respond(c, http.StatusCreated, member)
}

func (h *StaffHandler) UpdateStaff(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req staffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !h.validLink(c, req.UserID) {
		return
	}

	var member models.Staff
	if err := h.DB.First(&member, "id = ?", id).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "Staff member not found")
		return
	}
	req.apply(&member)
	if err := h.DB.Save(&member).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to update staff member")
		return
	}
	utils.OK(c, member)
}

func (h *StaffHandler) DeleteStaff(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	res := h.DB.Delete(&models.Staff{}, "id = ?", id)
	if res.Error != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to delete staff member")
		return
	}
	if res.RowsAffected == 0 {
		utils.Fail(c, http.StatusNotFound, "Staff member not found")
		return
	}
	utils.OK(c, gin.H{"message": "Staff member deleted"})
}
