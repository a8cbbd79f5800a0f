package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"taproom-backend/models"
	"taproom-backend/notify"
	"taproom-backend/services"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	resetCodeTTL     = 15 * time.Minute
	maxResetAttempts = 5
)

type AuthHandler struct {
	DB       *gorm.DB
	Mailer   notify.Mailer
	Settings *services.SettingsService
}

type authResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// bindEmail normalizes *email in place and validates the result, so
// surrounding whitespace never fails the format check.
func bindEmail(c *gin.Context, email *string) bool {
	*email = normalizeEmail(*email)
	if err := utils.ValidateEmail(*email); err != nil {
		utils.Fail(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// issueTokens signs a fresh access/refresh pair and records the refresh jti.
func (h *AuthHandler) issueTokens(db *gorm.DB, user *models.User) (*authResponse, error) {
	token, err := utils.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, jti, err := utils.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	rt := models.RefreshToken{
		UserID:    user.ID,
		Token:     jti,
		ExpiresAt: time.Now().Add(utils.RefreshTokenTTL),
	}
	if err := db.Create(&rt).Error; err != nil {
		return nil, err
	}
	return &authResponse{Token: token, RefreshToken: refresh, User: *user}, nil
}

func (h *AuthHandler) venueName(ctx context.Context) string {
	if h.Settings == nil {
		return "The Taproom"
	}
	return h.Settings.Get(ctx, "venue_name", "The Taproom")
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
		Name     string `json:"name" binding:"required,max=100"`
		Phone    string `json:"phone" binding:"max=30"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !bindEmail(c, &req.Email) {
		return
	}

	var count int64
	h.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		utils.Fail(c, http.StatusConflict, "Email already registered")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.User{
		Email:    req.Email,
		Password: string(hashed),
		Name:     strings.TrimSpace(req.Name),
		Phone:    req.Phone,
		Role:     models.RoleCustomer,
	}

	var resp *authResponse
	err = h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		resp, err = h.issueTokens(tx, &user)
		return err
	})
	if err != nil {
		log.Printf("register %s: %v", req.Email, err)
		utils.Fail(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	notify.SendTemplateAsync(h.Mailer, user.Email, notify.TemplateWelcome, notify.WelcomeData{
		Name:  user.Name,
		Venue: h.venueName(c.Request.Context()),
	})

	utils.Respond(c, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !bindEmail(c, &req.Email) {
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		utils.Fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.Fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if user.IsBlocked {
		utils.Fail(c, http.StatusForbidden, "Your account has been blocked. Please contact the venue.")
		return
	}

	resp, err := h.issueTokens(h.DB.WithContext(c.Request.Context()), &user)
	if err != nil {
		log.Printf("login %s: %v", user.Email, err)
		utils.Fail(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	utils.OK(c, resp)
}

// Refresh rotates a refresh token. The presented token is revoked with a
// conditional update so a replayed token loses the race and gets 401.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	claims, err := utils.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		utils.Fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	var resp *authResponse
	var blocked bool
	err = h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.RefreshToken{}).
			Where("token = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?", claims.ID, claims.UserID, now).
			Update("revoked_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var user models.User
		if err := tx.First(&user, "id = ?", claims.UserID).Error; err != nil {
			return err
		}
		if user.IsBlocked {
			blocked = true
			return nil
		}
		resp, err = h.issueTokens(tx, &user)
		return err
	})
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Fail(c, http.StatusUnauthorized, "Invalid or expired refresh token")
	case err != nil:
		log.Printf("refresh: %v", err)
		utils.Fail(c, http.StatusInternalServerError, "Failed to refresh token")
	case blocked:
		utils.Fail(c, http.StatusForbidden, "Your account has been blocked. Please contact the venue.")
	default:
		utils.OK(c, resp)
	}
}

// Logout revokes the given refresh token, or every token of the caller when
// none is given.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}

	query := h.DB.Model(&models.RefreshToken{}).Where("user_id = ? AND revoked_at IS NULL", userID)
	if req.RefreshToken != "" {
		claims, err := utils.ValidateRefreshToken(req.RefreshToken)
		if err != nil || claims.UserID != userID {
			utils.Fail(c, http.StatusBadRequest, "Invalid refresh token")
			return
		}
		query = query.Where("token = ?", claims.ID)
	}

	if err := query.Update("revoked_at", time.Now()).Error; err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to log out")
		return
	}
	utils.OK(c, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "User not found")
		return
	}
	utils.OK(c, user)
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Name  *string `json:"name" binding:"omitempty,min=1,max=100"`
		Phone *string `json:"phone" binding:"omitempty,max=30"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "User not found")
		return
	}
	if len(updates) > 0 {
		if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
			utils.Fail(c, http.StatusInternalServerError, "Failed to update profile")
			return
		}
		h.DB.First(&user, "id = ?", userID)
	}
	utils.OK(c, user)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.Fail(c, http.StatusNotFound, "User not found")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		utils.Fail(c, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	if err := h.setPassword(h.DB.WithContext(c.Request.Context()), user.ID, req.NewPassword); err != nil {
		log.Printf("change password %s: %v", user.ID, err)
		utils.Fail(c, http.StatusInternalServerError, "Failed to change password")
		return
	}
	utils.OK(c, gin.H{"message": "Password changed successfully"})
}

// setPassword stores a new hash and revokes every outstanding refresh token.
func (h *AuthHandler) setPassword(db *gorm.DB, userID interface{}, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Update("password", string(hashed)).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND revoked_at IS NULL", userID).
			Update("revoked_at", time.Now()).Error
	})
}

// ForgotPassword mails a six digit code. The answer is the same whether or
// not the account exists, and a delivery failure is only logged.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !bindEmail(c, &req.Email) {
		return
	}

	successMsg := gin.H{"message": "If an account with that email exists, a reset code has been sent."}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		utils.OK(c, successMsg)
		return
	}

	code, err := utils.NewResetCode()
	if err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to generate reset code")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to generate reset code")
		return
	}

	err = h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		// Only the newest code is ever valid.
		if err := tx.Model(&models.PasswordResetCode{}).
			Where("user_id = ? AND used_at IS NULL", user.ID).
			Update("used_at", time.Now()).Error; err != nil {
			return err
		}
		return tx.Create(&models.PasswordResetCode{
			UserID:    user.ID,
			CodeHash:  string(hash),
			ExpiresAt: time.Now().Add(resetCodeTTL),
		}).Error
	})
	if err != nil {
		log.Printf("forgot password %s: %v", user.Email, err)
		utils.Fail(c, http.StatusInternalServerError, "Failed to create reset code")
		return
	}

	if h.Mailer != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		err := notify.SendTemplate(ctx, h.Mailer, user.Email, notify.TemplatePasswordResetCode, notify.PasswordResetData{
			Name:          user.Name,
			Code:          code,
			ExpiryMinutes: int(resetCodeTTL / time.Minute),
		})
		if err != nil {
			log.Printf("WARNING: reset code email to %s failed: %v", user.Email, err)
		}
	}

	utils.OK(c, successMsg)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Code     string `json:"code" binding:"required,len=6,numeric"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !bindEmail(c, &req.Email) {
		return
	}

	invalid := func() {
		utils.Fail(c, http.StatusBadRequest, "Invalid or expired reset code")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		invalid()
		return
	}

	var rc models.PasswordResetCode
	err := h.DB.Where("user_id = ? AND used_at IS NULL AND expires_at > ?", user.ID, time.Now()).
		Order("created_at DESC").First(&rc).Error
	if err != nil {
		invalid()
		return
	}

	if rc.Attempts >= maxResetAttempts {
		utils.Fail(c, http.StatusTooManyRequests, "Too many attempts. Request a new code.")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(rc.CodeHash), []byte(req.Code)) != nil {
		h.DB.Model(&rc).UpdateColumn("attempts", gorm.Expr("attempts + 1"))
		invalid()
		return
	}

	err = h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PasswordResetCode{}).
			Where("id = ? AND used_at IS NULL", rc.ID).
			Update("used_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return h.setPassword(tx, user.ID, req.Password)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		invalid()
		return
	}
	if err != nil {
		log.Printf("reset password %s: %v", user.Email, err)
		utils.Fail(c, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	utils.OK(c, gin.H{"message": "Password reset successfully"})
}
