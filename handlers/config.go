package handlers

import (
	"net/http"

	"taproom-backend/services"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
)

type ConfigHandler struct {
	Settings *services.SettingsService
}

// GetPublicConfig exposes venue details, the tier ladder and the earn rate.
func (h *ConfigHandler) GetPublicConfig(c *gin.Context) {
	values, err := h.Settings.Public(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load configuration")
		return
	}
	tiers, err := h.Settings.Tiers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load configuration")
		return
	}
	utils.OK(c, gin.H{"settings": values, "tiers": tiers})
}

func (h *ConfigHandler) GetConfig(c *gin.Context) {
	values, err := h.Settings.All(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load configuration")
		return
	}
	utils.OK(c, values)
}

// UpdateConfig upserts the given keys. Body: {"settings": {"key": "value"}}.
func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	var req struct {
		Settings map[string]string `json:"settings" binding:"required,min=1,dive,keys,min=1,max=100,endkeys"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.Settings.Update(c.Request.Context(), req.Settings); err != nil {
		respondError(c, err, "Failed to update configuration")
		return
	}

	values, err := h.Settings.All(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load configuration")
		return
	}
	utils.Respond(c, http.StatusOK, values)
}
