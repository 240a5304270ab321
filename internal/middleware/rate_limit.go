package middleware

import (
	"net/http"
	"sync"
	"time"

	"whatsgo/internal/config"
	"whatsgo/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitorLimiter tracks one rate limiter per client key.
type visitorLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newVisitorLimiter(rps float64, burst int) *visitorLimiter {
	vl := &visitorLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
	}

	go vl.cleanup()

	return vl
}

func (vl *visitorLimiter) allow(key string) bool {
	vl.mu.Lock()
	defer vl.mu.Unlock()

	v, ok := vl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(vl.rps, vl.burst)}
		vl.visitors[key] = v
	}
	v.lastSeen = time.Now()

	return v.limiter.Allow()
}

func (vl *visitorLimiter) cleanup() {
	for {
		time.Sleep(3 * time.Minute)

		vl.mu.Lock()
		for key, v := range vl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(vl.visitors, key)
			}
		}
		vl.mu.Unlock()
	}
}

// RateLimit throttles API requests per authenticated user, falling back to
// client IP for unauthenticated requests.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newVisitorLimiter(cfg.RequestsPerSecond, cfg.Burst)

	return func(c *gin.Context) {
		if !limiter.allow(clientKey(c)) {
			c.Header("Retry-After", "1")
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if phone := c.GetString("phone_number"); phone != "" {
		return "user:" + phone
	}
	return "ip:" + c.ClientIP()
}
