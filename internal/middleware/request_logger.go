package middleware

import (
	"time"

	"whatsgo/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs every HTTP request with latency and status through the
// structured logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.LogRequest(
			c.Request.Method,
			path,
			c.ClientIP(),
			c.Request.UserAgent(),
			time.Since(start),
			c.Writer.Status(),
		)
	}
}
