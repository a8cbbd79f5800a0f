package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"taproom-backend/models"
	"taproom-backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderFixture struct {
	env      *testEnv
	customer models.User
	custTok  string
	staffTok string
	ale      models.Product
	chips    models.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	env := newTestEnv(t)
	f := &orderFixture{env: env}
	f.customer, f.custTok = seedTestUser(t, env.DB, "customer@test.com", models.RoleCustomer)
	_, f.staffTok = seedTestUser(t, env.DB, "staff@test.com", models.RoleStaff)
	f.ale = seedProduct(t, env.DB, "Pale Ale", "7.50", 7)
	f.chips = seedProduct(t, env.DB, "Chips", "4.25", 4)
	return f
}

// placeOrder orders two ales and one bowl of chips: 19.25, 18 points.
func (f *orderFixture) placeOrder(t *testing.T) models.Order {
	t.Helper()
	w := do(f.env.Router, http.MethodPost, "/api/orders", f.custTok, map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": f.ale.ID, "quantity": 1},
			{"product_id": f.chips.ID, "quantity": 1},
			{"product_id": f.ale.ID, "quantity": 1},
		},
		"table_number": "12",
	})
	requireStatus(t, w, http.StatusCreated)
	var order models.Order
	decodeData(t, w, &order)
	return order
}

func (f *orderFixture) setStatus(t *testing.T, id uuid.UUID, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return do(f.env.Router, http.MethodPut, "/api/admin/orders/"+id.String()+"/status", f.staffTok, body)
}

func TestCreateOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "19.25", order.Subtotal.StringFixed(2))
	assert.Equal(t, "19.25", order.Total.StringFixed(2))
	assert.Equal(t, 18, order.PointsToEarn)
	assert.Zero(t, order.PointsEarned)
	assert.Equal(t, "12", order.TableNumber)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Pale Ale", order.Items[0].ProductName)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "15.00", order.Items[0].Subtotal.StringFixed(2))
	assert.NotEmpty(t, order.OrderNumber)
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	f := newOrderFixture(t)
	gone := seedProduct(t, f.env.DB, "Seasonal", "9.00", 9)
	f.env.DB.Model(&gone).Update("is_available", false)

	tests := []struct {
		name  string
		items []map[string]interface{}
	}{
		{"empty", []map[string]interface{}{}},
		{"zero quantity", []map[string]interface{}{{"product_id": f.ale.ID, "quantity": 0}}},
		{"too many", []map[string]interface{}{{"product_id": f.ale.ID, "quantity": 1000}}},
		{"unknown product", []map[string]interface{}{{"product_id": uuid.New(), "quantity": 1}}},
		{"unavailable product", []map[string]interface{}{{"product_id": gone.ID, "quantity": 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(f.env.Router, http.MethodPost, "/api/orders", f.custTok, map[string]interface{}{"items": tt.items})
			requireStatus(t, w, http.StatusBadRequest)
			assert.False(t, parseResponse(t, w).Success)
		})
	}

	var count int64
	f.env.DB.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count)
}

func TestOrderWorkflowCreditsPointsOnce(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)

	for _, status := range []string{"approved", "preparing", "completed"} {
		w := f.setStatus(t, order.ID, map[string]interface{}{"status": status})
		requireStatus(t, w, http.StatusOK)
	}

	var user models.User
	require.NoError(t, f.env.DB.First(&user, "id = ?", f.customer.ID).Error)
	assert.Equal(t, 18, user.CurrentPoints)
	assert.Equal(t, 18, user.LifetimePoints)

	// Moving on to delivered must not credit again.
	w := f.setStatus(t, order.ID, map[string]interface{}{"status": "delivered"})
	requireStatus(t, w, http.StatusOK)
	var delivered models.Order
	decodeData(t, w, &delivered)
	assert.Equal(t, 18, delivered.PointsEarned)

	require.NoError(t, f.env.DB.First(&user, "id = ?", f.customer.ID).Error)
	assert.Equal(t, 18, user.CurrentPoints)

	w = do(f.env.Router, http.MethodGet, "/api/loyalty/history", f.custTok, nil)
	requireStatus(t, w, http.StatusOK)
	var page struct {
		Items []models.PointTransaction `json:"items"`
		Total int64                     `json:"total"`
	}
	decodeData(t, w, &page)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, models.PointsEarned, page.Items[0].Type)

	msgs := f.env.Mailer.waitFor(t, "customer@test.com", 4)
	assert.Len(t, msgs, 4)

	w = do(f.env.Router, http.MethodGet, "/api/orders/"+order.ID.String()+"/history", f.custTok, nil)
	requireStatus(t, w, http.StatusOK)
	var changes []models.OrderStatusChange
	decodeData(t, w, &changes)
	require.Len(t, changes, 4)
	assert.Equal(t, models.OrderStatusPending, changes[0].FromStatus)
	assert.Equal(t, models.OrderStatusDelivered, changes[3].ToStatus)
	assert.NotNil(t, changes[0].ActorID)
}

func TestOrderTransitionErrors(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)

	w := f.setStatus(t, order.ID, map[string]interface{}{"status": "completed"})
	requireStatus(t, w, http.StatusUnprocessableEntity)
	assert.Equal(t, "invalid_transition", parseResponse(t, w).Code)

	w = f.setStatus(t, order.ID, map[string]interface{}{"status": "teleported"})
	requireStatus(t, w, http.StatusUnprocessableEntity)

	w = f.setStatus(t, order.ID, map[string]interface{}{"status": "rejected"})
	requireStatus(t, w, http.StatusBadRequest)

	w = f.setStatus(t, uuid.New(), map[string]interface{}{"status": "approved"})
	requireStatus(t, w, http.StatusNotFound)

	w = f.setStatus(t, order.ID, map[string]interface{}{"status": "rejected", "reason": "Kitchen closed"})
	requireStatus(t, w, http.StatusOK)
	var rejected models.Order
	decodeData(t, w, &rejected)
	assert.Equal(t, "Kitchen closed", rejected.RejectionReason)

	// Terminal.
	w = f.setStatus(t, order.ID, map[string]interface{}{"status": "approved"})
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestOrderDiscountOnApproval(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)

	w := f.setStatus(t, order.ID, map[string]interface{}{"status": "approved", "discount": "-1"})
	requireStatus(t, w, http.StatusBadRequest)

	w = f.setStatus(t, order.ID, map[string]interface{}{"status": "approved", "discount": "4.25"})
	requireStatus(t, w, http.StatusOK)
	var approved models.Order
	decodeData(t, w, &approved)
	assert.Equal(t, "4.25", approved.Discount.StringFixed(2))
	assert.Equal(t, "15.00", approved.Total.StringFixed(2))
	assert.Equal(t, 18, approved.PointsToEarn)

	w = f.setStatus(t, order.ID, map[string]interface{}{"status": "preparing", "discount": "1"})
	requireStatus(t, w, http.StatusBadRequest)
}

func TestCustomerCannotDriveStaffWorkflow(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)

	w := do(f.env.Router, http.MethodPut, "/api/admin/orders/"+order.ID.String()+"/status", f.custTok, map[string]interface{}{"status": "approved"})
	requireStatus(t, w, http.StatusForbidden)

	w = do(f.env.Router, http.MethodGet, "/api/admin/orders", f.custTok, nil)
	requireStatus(t, w, http.StatusForbidden)
}

func TestOrderVisibility(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)
	_, otherTok := seedTestUser(t, f.env.DB, "other@test.com", models.RoleCustomer)

	w := do(f.env.Router, http.MethodGet, "/api/orders/"+order.ID.String(), otherTok, nil)
	requireStatus(t, w, http.StatusForbidden)

	w = do(f.env.Router, http.MethodGet, "/api/orders/"+order.ID.String(), f.staffTok, nil)
	requireStatus(t, w, http.StatusOK)

	w = do(f.env.Router, http.MethodGet, "/api/orders/not-a-uuid", f.custTok, nil)
	requireStatus(t, w, http.StatusBadRequest)

	w = do(f.env.Router, http.MethodGet, "/api/orders", otherTok, nil)
	requireStatus(t, w, http.StatusOK)
	var page struct {
		Items []models.Order `json:"items"`
		Total int64          `json:"total"`
	}
	decodeData(t, w, &page)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)
}

func TestCustomerCancel(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)
	_, otherTok := seedTestUser(t, f.env.DB, "other@test.com", models.RoleCustomer)

	w := do(f.env.Router, http.MethodPost, "/api/orders/"+order.ID.String()+"/cancel", otherTok, nil)
	requireStatus(t, w, http.StatusForbidden)

	w = do(f.env.Router, http.MethodPost, "/api/orders/"+order.ID.String()+"/cancel", f.custTok, map[string]string{"reason": strings.Repeat("x", 501)})
	requireStatus(t, w, http.StatusBadRequest)

	w = do(f.env.Router, http.MethodPost, "/api/orders/"+order.ID.String()+"/cancel", f.custTok, map[string]string{"reason": "Changed my mind"})
	requireStatus(t, w, http.StatusOK)
	var cancelled models.Order
	decodeData(t, w, &cancelled)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	second := f.placeOrder(t)
	requireStatus(t, f.setStatus(t, second.ID, map[string]interface{}{"status": "approved"}), http.StatusOK)
	w = do(f.env.Router, http.MethodPost, "/api/orders/"+second.ID.String()+"/cancel", f.custTok, nil)
	requireStatus(t, w, http.StatusUnprocessableEntity)
}

func TestStaffOrderQueue(t *testing.T) {
	f := newOrderFixture(t)
	first := f.placeOrder(t)
	f.placeOrder(t)
	requireStatus(t, f.setStatus(t, first.ID, map[string]interface{}{"status": "approved"}), http.StatusOK)

	var page struct {
		Items []models.Order `json:"items"`
		Total int64          `json:"total"`
		Page  int            `json:"page"`
		Limit int            `json:"limit"`
	}

	w := do(f.env.Router, http.MethodGet, "/api/admin/orders", f.staffTok, nil)
	requireStatus(t, w, http.StatusOK)
	decodeData(t, w, &page)
	assert.EqualValues(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, defaultPageSize, page.Limit)

	w = do(f.env.Router, http.MethodGet, "/api/admin/orders?status=pending", f.staffTok, nil)
	requireStatus(t, w, http.StatusOK)
	decodeData(t, w, &page)
	assert.EqualValues(t, 1, page.Total)

	future := url.QueryEscape(time.Now().Add(time.Hour).Format(time.RFC3339))
	w = do(f.env.Router, http.MethodGet, "/api/admin/orders?since="+future, f.staffTok, nil)
	requireStatus(t, w, http.StatusOK)
	decodeData(t, w, &page)
	assert.Zero(t, page.Total)

	w = do(f.env.Router, http.MethodGet, "/api/admin/orders?since=yesterday", f.staffTok, nil)
	requireStatus(t, w, http.StatusBadRequest)

	w = do(f.env.Router, http.MethodGet, "/api/admin/orders?status=lost", f.staffTok, nil)
	requireStatus(t, w, http.StatusBadRequest)
}

func TestOrderTransitionsTable(t *testing.T) {
	f := newOrderFixture(t)

	w := do(f.env.Router, http.MethodGet, "/api/admin/orders/transitions", f.staffTok, nil)
	requireStatus(t, w, http.StatusOK)
	var table map[models.OrderStatus][]models.OrderStatus
	decodeData(t, w, &table)
	assert.ElementsMatch(t, []models.OrderStatus{"approved", "rejected", "cancelled"}, table[models.OrderStatusPending])
	assert.Empty(t, table[models.OrderStatusDelivered])
}

func TestOrderReceiptAndQR(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)
	_, otherTok := seedTestUser(t, f.env.DB, "other@test.com", models.RoleCustomer)

	w := do(f.env.Router, http.MethodGet, "/api/orders/"+order.ID.String()+"/receipt", f.custTok, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), order.OrderNumber)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = do(f.env.Router, http.MethodGet, "/api/orders/"+order.ID.String()+"/receipt", otherTok, nil)
	requireStatus(t, w, http.StatusForbidden)

	w = do(f.env.Router, http.MethodGet, "/api/orders/"+order.ID.String()+"/qr?size=128", f.custTok, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestBlockedCustomerCannotOrder(t *testing.T) {
	f := newOrderFixture(t)
	f.env.DB.Model(&f.customer).Update("is_blocked", true)

	w := do(f.env.Router, http.MethodPost, "/api/orders", f.custTok, map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": f.ale.ID, "quantity": 1}},
	})
	requireStatus(t, w, http.StatusForbidden)
}

func TestPromotedStaffGainsAccessWithoutNewToken(t *testing.T) {
	f := newOrderFixture(t)
	token, err := utils.GenerateToken(f.customer.ID, f.customer.Email, models.RoleCustomer)
	require.NoError(t, err)

	f.env.DB.Model(&f.customer).Update("role", models.RoleStaff)
	w := do(f.env.Router, http.MethodGet, "/api/admin/orders", token, nil)
	requireStatus(t, w, http.StatusOK)
}

func TestOrderTransitionLosesRaceWithConflict(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placeOrder(t)
	requireStatus(t, f.setStatus(t, order.ID, map[string]interface{}{"status": "approved"}), http.StatusOK)

	// Another writer cancels the order after it was read for this request.
	fired := false
	err := f.env.DB.Callback().Update().Before("gorm:update").Register("test:cancel_order", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "orders" {
			return
		}
		fired = true
		tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE orders SET status = ?", models.OrderStatusCancelled)
	})
	require.NoError(t, err)

	w := f.setStatus(t, order.ID, map[string]interface{}{"status": "preparing"})
	requireStatus(t, w, http.StatusConflict)
	assert.Equal(t, "concurrent_update", parseResponse(t, w).Code)
	assert.True(t, fired)

	var stored models.Order
	require.NoError(t, f.env.DB.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusApproved, stored.Status)
}
