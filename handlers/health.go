package handlers

import (
	"context"
	"net/http"
	"time"

	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Health reports liveness plus a database ping.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			utils.Fail(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		utils.OK(c, gin.H{"status": "ok", "time": time.Now().UTC()})
	}
}
