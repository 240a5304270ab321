package routes

import (
	"whatsgo/internal/handlers"
	"whatsgo/internal/middleware"

	"github.com/gin-gonic/gin"
)

// setupWebSocketRoutes registers the realtime endpoints. The JWT middleware
// runs on the handshake request, so browser clients pass the token as a
// query parameter.
func setupWebSocketRoutes(router *gin.Engine, wsHandler *handlers.WebSocketHandler) {
	wsGroup := router.Group("/ws")
	wsGroup.Use(middleware.JWTAuth())
	{
		wsGroup.GET("/chat/:chat_id", wsHandler.HandleChatWebSocket)
		wsGroup.GET("/ai/:conversation_id", wsHandler.HandleAIWebSocket)
	}
}
