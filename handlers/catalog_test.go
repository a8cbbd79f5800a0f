package handlers

import (
	"net/http"
	"testing"

	"taproom-backend/models"
	"taproom-backend/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := do(env.Router, http.MethodGet, "/api/health", "", nil)
	requireStatus(t, w, http.StatusOK)
}

func TestPublicMenu(t *testing.T) {
	env := newTestEnv(t)
	seedProduct(t, env.DB, "Pale Ale", "7.50", 7)
	stout := seedProduct(t, env.DB, "Oatmeal Stout", "8.00", 8)
	wings := models.Product{Name: "Wings", Category: "food", Price: stout.Price, IsAvailable: true}
	require.NoError(t, env.DB.Create(&wings).Error)
	gone := seedProduct(t, env.DB, "Winter Warmer", "9.00", 9)
	env.DB.Model(&gone).Update("is_available", false)

	var list []models.Product
	w := do(env.Router, http.MethodGet, "/api/products", "", nil)
	requireStatus(t, w, http.StatusOK)
	decodeData(t, w, &list)
	assert.Len(t, list, 3)

	w = do(env.Router, http.MethodGet, "/api/products?category=FOOD", "", nil)
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Wings", list[0].Name)

	w = do(env.Router, http.MethodGet, "/api/products?search=stout", "", nil)
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, stout.ID, list[0].ID)

	var categories []string
	w = do(env.Router, http.MethodGet, "/api/products/categories", "", nil)
	decodeData(t, w, &categories)
	assert.Equal(t, []string{"beer", "food"}, categories)

	w = do(env.Router, http.MethodGet, "/api/products/"+gone.ID.String(), "", nil)
	requireStatus(t, w, http.StatusNotFound)
	w = do(env.Router, http.MethodGet, "/api/products/"+stout.ID.String(), "", nil)
	requireStatus(t, w, http.StatusOK)
}

func TestCreateProductDefaultsPoints(t *testing.T) {
	env := newTestEnv(t)
	_, adminTok := seedTestUser(t, env.DB, "admin@test.com", models.RoleAdmin)

	w := do(env.Router, http.MethodPost, "/api/admin/products", adminTok, map[string]interface{}{
		"name":     "Hazy IPA",
		"category": " Beer ",
		"price":    "9.90",
	})
	requireStatus(t, w, http.StatusCreated)
	var p models.Product
	decodeData(t, w, &p)
	assert.Equal(t, 9, p.Points, "floor(9.90 x 1)")
	assert.Equal(t, "beer", p.Category)
	assert.True(t, p.IsAvailable)

	// An explicit zero is kept.
	w = do(env.Router, http.MethodPost, "/api/admin/products", adminTok, map[string]interface{}{
		"name":   "Water",
		"price":  "1.00",
		"points": 0,
	})
	requireStatus(t, w, http.StatusCreated)
	decodeData(t, w, &p)
	assert.Zero(t, p.Points)

	require.NoError(t, services.NewSettingsService(env.DB).Update(t.Context(), map[string]string{"points_per_dollar": "2.5"}))
	w = do(env.Router, http.MethodPost, "/api/admin/products", adminTok, map[string]interface{}{
		"name":  "Nachos",
		"price": "12.30",
	})
	requireStatus(t, w, http.StatusCreated)
	decodeData(t, w, &p)
	assert.Equal(t, 30, p.Points, "floor(12.30 x 2.5)")
}

func TestProductValidation(t *testing.T) {
	env := newTestEnv(t)
	_, adminTok := seedTestUser(t, env.DB, "admin@test.com", models.RoleAdmin)
	_, staffTok := seedTestUser(t, env.DB, "staff@test.com", models.RoleStaff)

	tests := []struct {
		name   string
		token  string
		body   map[string]interface{}
		status int
	}{
		{"staff cannot edit menu", staffTok, map[string]interface{}{"name": "X", "price": "1"}, http.StatusForbidden},
		{"missing price", adminTok, map[string]interface{}{"name": "X"}, http.StatusBadRequest},
		{"zero price", adminTok, map[string]interface{}{"name": "X", "price": "0"}, http.StatusBadRequest},
		{"negative points", adminTok, map[string]interface{}{"name": "X", "price": "1", "points": -1}, http.StatusBadRequest},
		{"bad image url", adminTok, map[string]interface{}{"name": "X", "price": "1", "image_url": "not a url"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(env.Router, http.MethodPost, "/api/admin/products", tt.token, tt.body)
			requireStatus(t, w, tt.status)
		})
	}
}

func TestAdminProductLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, adminTok := seedTestUser(t, env.DB, "admin@test.com", models.RoleAdmin)
	p := seedProduct(t, env.DB, "Pale Ale", "7.50", 7)
	seedProduct(t, env.DB, "Lager", "6.50", 6)

	w := do(env.Router, http.MethodPut, "/api/admin/products/"+p.ID.String(), adminTok, map[string]interface{}{
		"price":        "8.00",
		"is_available": false,
	})
	requireStatus(t, w, http.StatusOK)
	var updated models.Product
	decodeData(t, w, &updated)
	assert.Equal(t, "8.00", updated.Price.StringFixed(2))
	assert.Equal(t, 7, updated.Points, "points only change when given")
	assert.False(t, updated.IsAvailable)

	var page struct {
		Items []models.Product `json:"items"`
		Total int64            `json:"total"`
	}
	w = do(env.Router, http.MethodGet, "/api/admin/products?limit=1", adminTok, nil)
	requireStatus(t, w, http.StatusOK)
	decodeData(t, w, &page)
	assert.EqualValues(t, 2, page.Total, "admin list includes unavailable products")
	assert.Len(t, page.Items, 1)

	w = do(env.Router, http.MethodDelete, "/api/admin/products/"+p.ID.String(), adminTok, nil)
	requireStatus(t, w, http.StatusOK)
	w = do(env.Router, http.MethodDelete, "/api/admin/products/"+p.ID.String(), adminTok, nil)
	requireStatus(t, w, http.StatusNotFound)
	w = do(env.Router, http.MethodPut, "/api/admin/products/"+uuid.New().String(), adminTok, map[string]interface{}{"name": "Ghost"})
	requireStatus(t, w, http.StatusNotFound)
}

func TestStaffProfiles(t *testing.T) {
	env := newTestEnv(t)
	_, adminTok := seedTestUser(t, env.DB, "admin@test.com", models.RoleAdmin)
	bartender, _ := seedTestUser(t, env.DB, "bar@test.com", models.RoleStaff)
	customer, _ := seedTestUser(t, env.DB, "customer@test.com", models.RoleCustomer)

	w := do(env.Router, http.MethodPost, "/api/admin/staff", adminTok, map[string]interface{}{"position": "Bartender"})
	requireStatus(t, w, http.StatusBadRequest)

	w = do(env.Router, http.MethodPost, "/api/admin/staff", adminTok, map[string]interface{}{"name": "Sam", "user_id": customer.ID})
	requireStatus(t, w, http.StatusBadRequest)

	w = do(env.Router, http.MethodPost, "/api/admin/staff", adminTok, map[string]interface{}{
		"name":     "Sam",
		"position": "Bartender",
		"user_id":  bartender.ID,
	})
	requireStatus(t, w, http.StatusCreated)
	var member models.Staff
	decodeData(t, w, &member)
	require.NotNil(t, member.UserID)
	assert.Equal(t, bartender.ID, *member.UserID)

	w = do(env.Router, http.MethodPut, "/api/admin/staff/"+member.ID.String(), adminTok, map[string]interface{}{"bio": "Pours a mean stout"})
	requireStatus(t, w, http.StatusOK)

	var list []models.Staff
	w = do(env.Router, http.MethodGet, "/api/staff", "", nil)
	decodeData(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Pours a mean stout", list[0].Bio)

	w = do(env.Router, http.MethodDelete, "/api/admin/staff/"+member.ID.String(), adminTok, nil)
	requireStatus(t, w, http.StatusOK)
	w = do(env.Router, http.MethodGet, "/api/staff/"+member.ID.String(), "", nil)
	requireStatus(t, w, http.StatusNotFound)
}

func TestConfig(t *testing.T) {
	env := newTestEnv(t)
	_, adminTok := seedTestUser(t, env.DB, "admin@test.com", models.RoleAdmin)
	require.NoError(t, services.NewSettingsService(env.DB).Update(t.Context(), map[string]string{"smtp_note": "internal"}))

	var public struct {
		Settings map[string]string `json:"settings"`
		Tiers    []services.Tier   `json:"tiers"`
	}
	w := do(env.Router, http.MethodGet, "/api/config", "", nil)
	requireStatus(t, w, http.StatusOK)
	decodeData(t, w, &public)
	assert.Equal(t, "The Taproom", public.Settings["venue_name"])
	assert.NotContains(t, public.Settings, "smtp_note")
	require.Len(t, public.Tiers, 4)
	assert.Equal(t, "bronze", public.Tiers[0].Name)

	w = do(env.Router, http.MethodPut, "/api/admin/config", adminTok, map[string]interface{}{
		"settings": map[string]string{"tier_silver_multiplier": "0.5"},
	})
	requireStatus(t, w, http.StatusBadRequest)

	w = do(env.Router, http.MethodPut, "/api/admin/config", adminTok, map[string]interface{}{
		"settings": map[string]string{"points_per_dollar": "lots"},
	})
	requireStatus(t, w, http.StatusBadRequest)

	w = do(env.Router, http.MethodPut, "/api/admin/config", adminTok, map[string]interface{}{"settings": map[string]string{}})
	requireStatus(t, w, http.StatusBadRequest)

	w = do(env.Router, http.MethodPut, "/api/admin/config", adminTok, map[string]interface{}{
		"settings": map[string]string{"venue_name": "The Hop Yard", "tier_gold_min": "1200"},
	})
	requireStatus(t, w, http.StatusOK)
	var all map[string]string
	decodeData(t, w, &all)
	assert.Equal(t, "The Hop Yard", all["venue_name"])
	assert.Equal(t, "1200", all["tier_gold_min"])
	assert.Equal(t, "internal", all["smtp_note"])

	w = do(env.Router, http.MethodGet, "/api/admin/config", "", nil)
	requireStatus(t, w, http.StatusUnauthorized)
}
