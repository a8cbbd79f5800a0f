package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"taproom-backend/middleware"
	"taproom-backend/services"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// statusFor maps service sentinels onto HTTP statuses. Anything unmapped is
// an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrConcurrentUpdate),
		errors.Is(err, services.ErrAlreadyUsed),
		errors.Is(err, services.ErrOutOfStock):
		return http.StatusConflict
	case errors.Is(err, services.ErrInsufficientPoints),
		errors.Is(err, services.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrReasonRequired),
		errors.Is(err, services.ErrProductUnavailable),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrEmptyOrder),
		errors.Is(err, services.ErrInvalidBooking),
		errors.Is(err, services.ErrInvalidDiscount),
		errors.Is(err, services.ErrInvalidSetting):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// codeFor gives clients a stable machine-readable reason next to the message.
func codeFor(err error) string {
	switch {
	case errors.Is(err, services.ErrInsufficientPoints):
		return "insufficient_points"
	case errors.Is(err, services.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, services.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, services.ErrConcurrentUpdate):
		return "concurrent_update"
	case errors.Is(err, services.ErrAlreadyUsed):
		return "already_used"
	}
	return ""
}

// respondError surfaces domain errors verbatim and hides everything else
// behind a generic message.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		utils.Fail(c, status, fallback)
		return
	}
	if code := codeFor(err); code != "" {
		utils.FailCode(c, status, code, err.Error())
		return
	}
	utils.Fail(c, status, err.Error())
}

func bindError(c *gin.Context, err error) {
	utils.Fail(c, http.StatusBadRequest, utils.SanitizeValidationError(err))
}

// bindOptionalJSON binds a body that may be absent. An empty body leaves obj
// untouched; malformed or invalid input is answered with 400.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return false
	}
	return true
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.Fail(c, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.Fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return page, limit
}

// sinceParam reads ?since= as RFC3339. Pollers send back the timestamp of
// their previous response.
func sinceParam(c *gin.Context) (*time.Time, bool) {
	raw := c.Query("since")
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		utils.Fail(c, http.StatusBadRequest, "since must be an RFC3339 timestamp")
		return nil, false
	}
	return &t, true
}

func paged(items interface{}, total int64, page, limit int) utils.Paged {
	return utils.Paged{Items: items, Total: total, Page: page, Limit: limit}
}
