package handlers

import (
	"net/http"

	"taproom-backend/models"
	"taproom-backend/services"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
)

type LoyaltyHandler struct {
	Loyalty *services.LoyaltyService
}

func (h *LoyaltyHandler) GetStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	status, err := h.Loyalty.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to load loyalty status")
		return
	}
	utils.OK(c, status)
}

func (h *LoyaltyHandler) GetHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, limit := pagination(c)
	entries, total, err := h.Loyalty.History(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err, "Failed to load points history")
		return
	}
	utils.OK(c, paged(entries, total, page, limit))
}

// GetUserStatus is the admin view of any customer's balance and tier.
func (h *LoyaltyHandler) GetUserStatus(c *gin.Context) {
	userID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	status, err := h.Loyalty.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to load loyalty status")
		return
	}
	utils.OK(c, status)
}

func (h *LoyaltyHandler) GetUserHistory(c *gin.Context) {
	userID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	page, limit := pagination(c)
	entries, total, err := h.Loyalty.History(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err, "Failed to load points history")
		return
	}
	utils.OK(c, paged(entries, total, page, limit))
}

// AdjustPoints appends a manual adjustment or bonus to a user's ledger.
func (h *LoyaltyHandler) AdjustPoints(c *gin.Context) {
	actorID, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Points      int    `json:"points" binding:"required"`
		Type        string `json:"type" binding:"omitempty,oneof=adjustment bonus"`
		Description string `json:"description" binding:"max=300"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	kind := models.PointsAdjustment
	if req.Type != "" {
		kind = models.PointTransactionType(req.Type)
	}

	entry, err := h.Loyalty.Adjust(c.Request.Context(), userID, services.AdjustInput{
		Points:      req.Points,
		Type:        kind,
		Description: req.Description,
		ActorID:     actorID,
	})
	if err != nil {
		respondError(c, err, "Failed to adjust points")
		return
	}
	utils.Respond(c, http.StatusCreated, entry)
}
