package handlers

import (
	"net/http"
	"strconv"

	"taproom-backend/middleware"
	"taproom-backend/models"
	"taproom-backend/receipt"
	"taproom-backend/services"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	Orders        *services.OrderService
	Settings      *services.SettingsService
	PublicBaseURL string
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Items       []services.OrderLineInput `json:"items" binding:"required,min=1,max=20,dive"`
		TableNumber string                    `json:"table_number" binding:"max=20"`
		Notes       string                    `json:"notes" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	order, err := h.Orders.Create(c.Request.Context(), userID, services.CreateOrderInput{
		Items:       req.Items,
		TableNumber: req.TableNumber,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err, "Failed to create order")
		return
	}
	utils.Respond(c, http.StatusCreated, order)
}

// GetMyOrders lists the caller's own orders.
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.list(c, services.OrderFilter{UserID: &userID})
}

// GetOrders is the staff queue: every order, filterable by status and by
// ?since= for polling.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	h.list(c, services.OrderFilter{})
}

func (h *OrderHandler) list(c *gin.Context, f services.OrderFilter) {
	since, ok := sinceParam(c)
	if !ok {
		return
	}
	status := models.OrderStatus(c.Query("status"))
	if status != "" && !models.IsKnownStatus(status) {
		utils.Fail(c, http.StatusBadRequest, "Unknown status")
		return
	}

	f.Status = status
	f.Since = since
	f.Page, f.Limit = pagination(c)

	orders, total, err := h.Orders.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err, "Failed to fetch orders")
		return
	}
	utils.OK(c, paged(orders, total, f.Page, f.Limit))
}

func (h *OrderHandler) load(c *gin.Context) (*models.Order, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return nil, false
	}
	order, err := h.Orders.GetForUser(c.Request.Context(), id, userID, middleware.IsStaff(c))
	if err != nil {
		respondError(c, err, "Failed to fetch order")
		return nil, false
	}
	return order, true
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, ok := h.load(c)
	if !ok {
		return
	}
	utils.OK(c, order)
}

func (h *OrderHandler) GetOrderHistory(c *gin.Context) {
	order, ok := h.load(c)
	if !ok {
		return
	}
	changes, err := h.Orders.History(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, err, "Failed to fetch order history")
		return
	}
	utils.OK(c, changes)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"max=500"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}

	order, err := h.Orders.CancelByCustomer(c.Request.Context(), userID, id, req.Reason)
	if err != nil {
		respondError(c, err, "Failed to cancel order")
		return
	}
	utils.OK(c, order)
}

// UpdateOrderStatus drives the staff side of the workflow.
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	actorID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status   models.OrderStatus `json:"status" binding:"required"`
		Reason   string             `json:"reason" binding:"max=500"`
		Discount *decimal.Decimal   `json:"discount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	order, err := h.Orders.Transition(c.Request.Context(), id, services.TransitionInput{
		Status:   req.Status,
		Reason:   req.Reason,
		Discount: req.Discount,
		ActorID:  &actorID,
	})
	if err != nil {
		respondError(c, err, "Failed to update order status")
		return
	}
	utils.OK(c, order)
}

// GetOrderTransitions returns the statuses reachable from each status so the
// dashboard can render only valid buttons.
func (h *OrderHandler) GetOrderTransitions(c *gin.Context) {
	utils.OK(c, models.AllowedTransitions)
}

func (h *OrderHandler) GetReceipt(c *gin.Context) {
	order, ok := h.load(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	venue := receipt.VenueInfo{
		Name:    h.Settings.Get(ctx, "venue_name", "The Taproom"),
		Address: h.Settings.Get(ctx, "venue_address", ""),
		Phone:   h.Settings.Get(ctx, "venue_phone", ""),
		Footer:  h.Settings.Get(ctx, "receipt_footer", ""),
		BaseURL: h.PublicBaseURL,
	}

	pdf, err := receipt.Render(order, order.Items, venue)
	if err != nil {
		respondError(c, err, "Failed to render receipt")
		return
	}

	c.Header("Content-Disposition", `inline; filename="receipt-`+order.OrderNumber+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *OrderHandler) GetOrderQR(c *gin.Context) {
	order, ok := h.load(c)
	if !ok {
		return
	}
	png, err := receipt.EncodeQR(receipt.OrderQRPayload(h.PublicBaseURL, order), qrSize(c))
	if err != nil {
		respondError(c, err, "Failed to render QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func qrSize(c *gin.Context) int {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	if size > 1024 {
		size = 1024
	}
	return size
}
