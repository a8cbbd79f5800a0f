package handlers

import (
	"context"
	"net/http"
	"time"

	"taproom-backend/models"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var fulfilledStatuses = []models.OrderStatus{models.OrderStatusCompleted, models.OrderStatusDelivered}

type StatsHandler struct {
	DB *gorm.DB
}

type Dashboard struct {
	TotalUsers         int64                        `json:"total_users"`
	OrdersByStatus     map[models.OrderStatus]int64 `json:"orders_by_status"`
	PendingRedemptions int64                        `json:"pending_redemptions"`
	UpcomingBookings   int64                        `json:"upcoming_bookings"`
	Revenue            decimal.Decimal              `json:"revenue"`
	RecentRevenue      decimal.Decimal              `json:"recent_revenue"`
	PointsIssued       int64                        `json:"points_issued"`
	PointsRedeemed     int64                        `json:"points_redeemed"`
	RecentOrders       []models.Order               `json:"recent_orders"`
}

// GetDashboard runs its aggregate queries concurrently. Each goroutine
// writes only its own field.
func (h *StatsHandler) GetDashboard(c *gin.Context) {
	var d Dashboard
	g, ctx := errgroup.WithContext(c.Request.Context())
	db := func() *gorm.DB { return h.DB.WithContext(ctx) }

	g.Go(func() error {
		return db().Model(&models.User{}).Where("role = ?", models.RoleCustomer).Count(&d.TotalUsers).Error
	})
	g.Go(func() error {
		var rows []struct {
			Status models.OrderStatus
			Count  int64
		}
		if err := db().Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
			return err
		}
		d.OrdersByStatus = make(map[models.OrderStatus]int64, len(models.AllowedTransitions))
		for s := range models.AllowedTransitions {
			d.OrdersByStatus[s] = 0
		}
		for _, r := range rows {
			d.OrdersByStatus[r.Status] = r.Count
		}
		return nil
	})
	g.Go(func() error {
		return db().Model(&models.Redemption{}).Where("status = ?", models.RedemptionPending).Count(&d.PendingRedemptions).Error
	})
	g.Go(func() error {
		return db().Model(&models.Booking{}).
			Where("status IN ? AND scheduled_at > ?", []models.BookingStatus{models.BookingPending, models.BookingConfirmed}, time.Now()).
			Count(&d.UpcomingBookings).Error
	})
	g.Go(func() error {
		var err error
		d.Revenue, err = sumRevenue(ctx, h.DB, time.Time{})
		return err
	})
	g.Go(func() error {
		var err error
		d.RecentRevenue, err = sumRevenue(ctx, h.DB, time.Now().AddDate(0, 0, -7))
		return err
	})
	g.Go(func() error {
		return db().Model(&models.PointTransaction{}).Where("points > 0").
			Select("COALESCE(SUM(points), 0)").Scan(&d.PointsIssued).Error
	})
	g.Go(func() error {
		return db().Model(&models.PointTransaction{}).Where("type = ?", models.PointsRedeemed).
			Select("COALESCE(-SUM(points), 0)").Scan(&d.PointsRedeemed).Error
	})
	g.Go(func() error {
		return db().Preload("Items").Preload("User").Order("created_at DESC").Limit(10).Find(&d.RecentOrders).Error
	})

	if err := g.Wait(); err != nil {
		respondError(c, err, "Failed to load dashboard")
		return
	}
	utils.OK(c, d)
}

// sumRevenue totals fulfilled orders updated after since. Summing in Go
// keeps the decimal exact on every driver.
func sumRevenue(ctx context.Context, db *gorm.DB, since time.Time) (decimal.Decimal, error) {
	query := db.WithContext(ctx).Model(&models.Order{}).Where("status IN ?", fulfilledStatuses)
	if !since.IsZero() {
		query = query.Where("updated_at >= ?", since)
	}
	var totals []decimal.Decimal
	if err := query.Pluck("total", &totals).Error; err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}
	return sum, nil
}

type TopProduct struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int64     `json:"quantity"`
	Orders      int64     `json:"orders"`
}

// GetTopProducts ranks products by quantity sold in fulfilled orders.
// ?limit= caps the list (default 10).
func (h *StatsHandler) GetTopProducts(c *gin.Context) {
	_, limit := pagination(c)
	if c.Query("limit") == "" {
		limit = 10
	}

	var top []TopProduct
	err := h.DB.WithContext(c.Request.Context()).
		Table("order_items").
		Select("order_items.product_id, MAX(order_items.product_name) AS product_name, SUM(order_items.quantity) AS quantity, COUNT(DISTINCT order_items.order_id) AS orders").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status IN ?", fulfilledStatuses).
		Group("order_items.product_id").
		Order("quantity DESC").
		Limit(limit).
		Scan(&top).Error
	if err != nil {
		utils.Fail(c, http.StatusInternalServerError, "Failed to load top products")
		return
	}
	utils.OK(c, top)
}
