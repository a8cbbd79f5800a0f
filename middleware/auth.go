package middleware

import (
	"errors"
	"net/http"
	"strings"

	"taproom-backend/models"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
)

// AuthMiddleware validates the bearer access token and stores the caller's
// id and role on the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			utils.Abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := utils.ValidateToken(parts[1])
		if err != nil {
			utils.Abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// AccountMiddleware reloads the caller after AuthMiddleware so that a block
// or a role change takes effect before the token expires.
func AccountMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			utils.Abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		var user models.User
		err := db.WithContext(c.Request.Context()).Select("id", "role", "is_blocked").First(&user, "id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Abort(c, http.StatusUnauthorized, "Account no longer exists")
			return
		}
		if err != nil {
			utils.Abort(c, http.StatusInternalServerError, "Failed to load account")
			return
		}
		if user.IsBlocked {
			utils.Abort(c, http.StatusForbidden, "Account is blocked")
			return
		}

		c.Set(ContextUserRole, user.Role)
		c.Next()
	}
}

func AdminMiddleware() gin.HandlerFunc {
	return RequireRole("Admin access required", models.RoleAdmin)
}

// StaffMiddleware admits staff and admins.
func StaffMiddleware() gin.HandlerFunc {
	return RequireRole("Staff access required", models.RoleStaff, models.RoleAdmin)
}

func RequireRole(message string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentUserRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		utils.Abort(c, http.StatusForbidden, message)
	}
}

func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func CurrentUserRole(c *gin.Context) string {
	role, _ := c.Get(ContextUserRole)
	s, _ := role.(string)
	return s
}

func IsStaff(c *gin.Context) bool {
	role := CurrentUserRole(c)
	return role == models.RoleStaff || role == models.RoleAdmin
}
