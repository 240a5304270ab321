package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"whatsgo/internal/config"

	"github.com/gin-gonic/gin"
)

func TestVisitorLimiterAllowsBurstThenBlocks(t *testing.T) {
	vl := newVisitorLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !vl.allow("ip:1.2.3.4") {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if vl.allow("ip:1.2.3.4") {
		t.Fatal("request beyond burst should be blocked")
	}

	// A different client is unaffected.
	if !vl.allow("ip:5.6.7.8") {
		t.Fatal("other client should have its own budget")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimit(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		Burst:             2,
	}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		router.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("burst requests should pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("third request should be throttled, got %v", statuses)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimit(config.RateLimitConfig{Enabled: false}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("disabled limiter should never throttle, got %d", w.Code)
		}
	}
}
