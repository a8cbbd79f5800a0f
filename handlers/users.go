package handlers

import (
	"net/http"
	"time"

	"taproom-backend/models"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserHandler is the admin view of customer and staff accounts.
type UserHandler struct {
	DB *gorm.DB
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, limit := pagination(c)

	query := h.DB.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if c.Query("blocked") == "true" {
		query = query.Where("is_blocked = ?", true)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", like, like)
	}

	var total int64
	query.Count(&total)

	var users []models.User
	if err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	utils.OK(c, paged(users, total, page, limit))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "User not found")
		return
	}
	utils.OK(c, user)
}

// UpdateUser changes role and block state. Admins cannot demote or block
// themselves.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	currentID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Role      *string `json:"role" binding:"omitempty,oneof=customer staff admin"`
		IsBlocked *bool   `json:"is_blocked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if id == currentID && (req.Role != nil || req.IsBlocked != nil) {
		utils.Fail(c, http.StatusBadRequest, "Cannot change your own role or block state")
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "User not found")
		return
	}

	updates := map[string]interface{}{}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.IsBlocked != nil {
		updates["is_blocked"] = *req.IsBlocked
	}

	if len(updates) > 0 {
		err := h.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
			if req.IsBlocked != nil && *req.IsBlocked {
				return tx.Model(&models.RefreshToken{}).
					Where("user_id = ? AND revoked_at IS NULL", user.ID).
					Update("revoked_at", time.Now()).Error
			}
			return nil
		})
		if err != nil {
			utils.Fail(c, http.StatusInternalServerError, "Failed to update user")
			return
		}
	}

	h.DB.First(&user, "id = ?", id)
	utils.OK(c, user)
}
