package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"taproom-backend/database"
	"taproom-backend/middleware"
	"taproom-backend/models"
	"taproom-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret-for-routes")
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatal(err)
	}
	if err := database.SeedDefaultSettings(db); err != nil {
		t.Fatal(err)
	}
	return db
}

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	db := setupTestDB(t)
	r := gin.New()
	t.Cleanup(SetupRoutes(r, Dependencies{DB: db}).Stop)
	return r, db
}

func tokenFor(t *testing.T, db *gorm.DB, email, role string) string {
	t.Helper()
	user := models.User{Email: email, Password: "unused", Role: role}
	if err := db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	token, err := utils.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	r, _ := setupRouter(t)
	w := get(r, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPublicRoutes(t *testing.T) {
	r, _ := setupRouter(t)
	for _, path := range []string{"/api/products", "/api/rewards", "/api/services", "/api/photos", "/api/staff", "/api/config"} {
		w := get(r, path, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d: %s", path, w.Code, w.Body.String())
		}
	}
}

func TestProtectedRouteRequiresAuth(t *testing.T) {
	r, _ := setupRouter(t)
	for _, path := range []string{"/api/orders", "/api/loyalty/status", "/api/redemptions", "/api/admin/orders"} {
		w := get(r, path, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d: %s", path, w.Code, w.Body.String())
		}
	}
}

func TestTokenForDeletedUserRejected(t *testing.T) {
	r, _ := setupRouter(t)
	token, _ := utils.GenerateToken(uuid.New(), "ghost@test.com", models.RoleAdmin)
	w := get(r, "/api/orders", token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminRouteBlocksNonAdmin(t *testing.T) {
	r, db := setupRouter(t)
	customer := tokenFor(t, db, "user@test.com", models.RoleCustomer)
	staff := tokenFor(t, db, "staff@test.com", models.RoleStaff)

	tests := []struct {
		name  string
		token string
		path  string
		want  int
	}{
		{"customer on staff queue", customer, "/api/admin/orders", http.StatusForbidden},
		{"customer on admin menu", customer, "/api/admin/products", http.StatusForbidden},
		{"customer on stats", customer, "/api/stats/dashboard", http.StatusForbidden},
		{"staff on staff queue", staff, "/api/admin/orders", http.StatusOK},
		{"staff on admin menu", staff, "/api/admin/products", http.StatusForbidden},
		{"staff on stats", staff, "/api/stats/dashboard", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.path, tt.token)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestSuppliedAuthLimiterIsUsed(t *testing.T) {
	db := setupTestDB(t)
	limiter := middleware.NewRateLimiter(1, time.Minute)
	r := gin.New()
	got := SetupRoutes(r, Dependencies{DB: db, AuthLimiter: limiter})
	t.Cleanup(got.Stop)
	if got != limiter {
		t.Fatal("expected the supplied limiter to be returned")
	}

	login := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@test.com","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w.Code
	}
	if code := login(); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", code)
	}
	if code := login(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the limiter is spent, got %d", code)
	}
}
