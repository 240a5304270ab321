package middleware

import (
	"net/http"
	"strings"

	"whatsgo/internal/utils"
	"whatsgo/pkg/logger"

	"github.com/gin-gonic/gin"
)

// JWTAuth validates the bearer token and stores the caller's identity on
// the request context. WebSocket handshakes cannot set headers, so a
// token query parameter is accepted as well.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Missing authorization token")
			c.Abort()
			return
		}

		claims, err := utils.ValidateUserJWT(tokenString)
		if err != nil {
			logger.WithError(err).Debug("JWT validation failed")
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		c.Set("phone_number", claims.PhoneNumber)
		c.Set("username", claims.Username)

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		if token := strings.TrimPrefix(authHeader, "Bearer "); token != authHeader {
			return token
		}
		return ""
	}
	return c.Query("token")
}
