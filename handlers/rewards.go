package handlers

import (
	"net/http"

	"taproom-backend/middleware"
	"taproom-backend/models"
	"taproom-backend/receipt"
	"taproom-backend/services"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RewardHandler struct {
	DB          *gorm.DB
	Redemptions *services.RedemptionService
}

type rewardRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=120"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	ImageURL    *string `json:"image_url" binding:"omitempty,url"`
	PointsCost  *int    `json:"points_cost" binding:"omitempty,gt=0"`
	Stock       *int    `json:"stock" binding:"omitempty,gte=0"`
	IsActive    *bool   `json:"is_active"`
}

func (r rewardRequest) apply(reward *models.Reward) {
	if r.Name != nil {
		reward.Name = *r.Name
	}
	if r.Description != nil {
		reward.Description = *r.Description
	}
	if r.ImageURL != nil {
		reward.ImageURL = *r.ImageURL
	}
	if r.PointsCost != nil {
		reward.PointsCost = *r.PointsCost
	}
	if r.Stock != nil {
		reward.Stock = *r.Stock
	}
	if r.IsActive != nil {
		reward.IsActive = *r.IsActive
	}
}

// GetRewards lists active rewards, cheapest first. Staff may pass
// ?all=true to include inactive ones.
func (h *RewardHandler) GetRewards(c *gin.Context) {
	query := h.DB.Order("points_cost ASC")
	if !(c.Query("all") == "true" && middleware.IsStaff(c)) {
		query = query.Where("is_active = ?", true)
	}

	var rewards []models.Reward
	if err := query.Find(&rewards).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to fetch rewards")
		return
	}
	utils.OK(c, rewards)
}

func (h *RewardHandler) GetReward(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var reward models.Reward
	if err := h.DB.Where("id = ? AND is_active = ?", id, true).First(&reward).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "Reward not found")
		return
	}
	utils.OK(c, reward)
}

func (h *RewardHandler) CreateReward(c *gin.Context) {
	var req rewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Name == nil || req.PointsCost == nil {
		utils.Fail(c, http.StatusBadRequest, "name and points_cost are required")
		return
	}

	reward := models.Reward{IsActive: true}
	req.apply(&reward)
	if err := h.DB.Create(&reward).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to create reward")
		return
	}
	utils.Respond(c, http.StatusCreated, reward)
}

func (h *RewardHandler) UpdateReward(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req rewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var reward models.Reward
	if err := h.DB.First(&reward, "id = ?", id).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "Reward not found")
		return
	}
	req.apply(&reward)
	if err := h.DB.Save(&reward).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to update reward")
		return
	}
	utils.OK(c, reward)
}

// DeleteReward deactivates rather than deletes: existing redemptions keep
// pointing at it.
func (h *RewardHandler) DeleteReward(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	res := h.DB.Model(&models.Reward{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to delete reward")
		return
	}
	if res.RowsAffected == 0 {
		utils.Fail(c, http.StatusNotFound, "Reward not found")
		return
	}
	utils.OK(c, gin.H{"message": "Reward deactivated"})
}

func (h *RewardHandler) Redeem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	rewardID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	redemption, err := h.Redemptions.Redeem(c.Request.Context(), userID, rewardID)
	if err != nil {
		respondError(c, err, "Failed to redeem reward")
		return
	}
	utils.Respond(c, http.StatusCreated, redemption)
}

func (h *RewardHandler) GetMyRedemptions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.listRedemptions(c, services.RedemptionFilter{UserID: &userID})
}

// GetRedemptions is the staff view. The admin UI polls it with ?since=.
func (h *RewardHandler) GetRedemptions(c *gin.Context) {
	h.listRedemptions(c, services.RedemptionFilter{})
}

func (h *RewardHandler) listRedemptions(c *gin.Context, f services.RedemptionFilter) {
	since, ok := sinceParam(c)
	if !ok {
		return
	}
	switch status := models.RedemptionStatus(c.Query("status")); status {
	case "", models.RedemptionPending, models.RedemptionUsed:
		f.Status = status
	default:
		utils.Fail(c, http.StatusBadRequest, "Unknown status")
		return
	}
	f.Since = since
	f.Page, f.Limit = pagination(c)

	list, total, err := h.Redemptions.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err, "Failed to fetch redemptions")
		return
	}
	utils.OK(c, paged(list, total, f.Page, f.Limit))
}

func (h *RewardHandler) LookupRedemption(c *gin.Context) {
	redemption, err := h.Redemptions.LookupByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err, "Failed to look up redemption")
		return
	}
	utils.OK(c, redemption)
}

// MarkRedemptionUsed accepts either the redemption id or its code in :ref.
func (h *RewardHandler) MarkRedemptionUsed(c *gin.Context) {
	staffID, ok := currentUser(c)
	if !ok {
		return
	}
	redemption, err := h.Redemptions.MarkUsed(c.Request.Context(), c.Param("ref"), staffID)
	if err != nil {
		respondError(c, err, "Failed to mark redemption used")
		return
	}
	utils.OK(c, redemption)
}

func (h *RewardHandler) GetRedemptionQR(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	redemption, err := h.Redemptions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to fetch redemption")
		return
	}
	if redemption.UserID != userID && !middleware.IsStaff(c) {
		respondError(c, services.ErrForbidden, "")
		return
	}

	png, err := receipt.EncodeQR(receipt.RedemptionQRPayload(redemption), qrSize(c))
	if err != nil {
		respondError(c, err, "Failed to render QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
