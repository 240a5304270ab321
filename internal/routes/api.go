package routes

import (
	"whatsgo/internal/ai"
	"whatsgo/internal/config"
	"whatsgo/internal/handlers"
	"whatsgo/internal/middleware"
	"whatsgo/internal/services"
	"whatsgo/internal/ws"
	"whatsgo/pkg/database"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires services, the room coordinator, and all HTTP and
// WebSocket endpoints onto the router. Returns the coordinator so the
// caller can start its background sweeps.
func SetupRoutes(router *gin.Engine, cfg *config.Config) *ws.Coordinator {
	db := database.GetDatabase()

	chatService := services.NewChatService(db)
	messageService := services.NewMessageService(db)
	deliveryService := services.NewDeliveryService(db)
	presenceService := services.NewPresenceService(db)
	callService := services.NewCallService(db)
	userService := services.NewUserService(db)
	aiService := services.NewAIService(db, ai.NewClient(cfg.AI))

	hub := ws.NewHub()
	coordinator := ws.NewCoordinator(
		chatService,
		messageService,
		deliveryService,
		presenceService,
		callService,
		userService,
		hub,
	)

	chatHandler := handlers.NewChatHandler(
		chatService, messageService, deliveryService, presenceService,
		coordinator, cfg.Chat.HistoryPageSize,
	)
	callHandler := handlers.NewCallHandler(callService, chatService)
	aiHandler := handlers.NewAIHandler(aiService)
	wsHandler := handlers.NewWebSocketHandler(coordinator, aiService, cfg.Server.WebSocket)

	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.Server.CORS))
	router.Use(middleware.RateLimit(cfg.Security.RateLimit))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":   "ok",
			"database": database.HealthCheck(),
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth())
	{
		chats := v1.Group("/chats")
		{
			chats.GET("", chatHandler.ListChats)
			chats.POST("/private", chatHandler.CreatePrivateChat)
			chats.POST("/group", chatHandler.CreateGroupChat)
			chats.GET("/:chat_id/messages", chatHandler.History)
			chats.GET("/:chat_id/typing", chatHandler.TypingUsers)
			chats.GET("/:chat_id/calls", callHandler.History)
			chats.POST("/:chat_id/flags", chatHandler.SetParticipantFlag)
			chats.PUT("/:chat_id/settings", chatHandler.SetGroupSendPolicy)
			chats.POST("/:chat_id/admins", chatHandler.AddGroupAdmin)
		}

		messages := v1.Group("/messages")
		{
			messages.PUT("/:message_id", chatHandler.EditMessage)
			messages.DELETE("/:message_id", chatHandler.DeleteMessage)
			messages.GET("/:message_id/statuses", chatHandler.MessageStatuses)
		}

		v1.GET("/presence/online", chatHandler.OnlineUsers)

		aiGroup := v1.Group("/ai")
		{
			aiGroup.POST("/conversations", aiHandler.CreateConversation)
			aiGroup.GET("/conversations/:conversation_id/messages", aiHandler.History)
		}
	}

	setupWebSocketRoutes(router, wsHandler)

	return coordinator
}
