package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.allow("1.2.3.4"), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.allow("1.2.3.4"), "fourth request should be limited")
	assert.True(t, rl.allow("5.6.7.8"), "another client has its own bucket")
}

func TestRateLimiterTokenRefill(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond)
	defer rl.Stop()

	rl.allow("1.2.3.4")
	assert.False(t, rl.allow("1.2.3.4"))
	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.allow("1.2.3.4"), "token should have refilled")
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Stop()
	rl.Stop()
}

func TestRateLimiterMiddlewarePerRoute(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/auth/forgot-password", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", path, nil))
		return w
	}

	assert.Equal(t, http.StatusOK, do("/auth/login").Code)

	limited := do("/auth/login")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Contains(t, limited.Body.String(), `"success":false`)

	assert.Equal(t, http.StatusOK, do("/auth/forgot-password").Code, "routes are limited separately")
}
