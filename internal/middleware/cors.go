package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"whatsgo/internal/config"

	"github.com/gin-gonic/gin"
)

// CORS handles Cross-Origin Resource Sharing per the configured origin list.
// Localhost origins are always allowed so local web clients work in
// development.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		switch {
		case isOriginAllowed(origin, cfg.AllowedOrigins):
			c.Header("Access-Control-Allow-Origin", origin)
		case strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1"):
			c.Header("Access-Control-Allow-Origin", origin)
		}

		if cfg.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
		c.Header("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
		c.Header("Access-Control-Max-Age", maxAge)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if strings.TrimSpace(allowed) == origin {
			return true
		}
	}
	return false
}
