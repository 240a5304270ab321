package handlers

import (
	"errors"
	"net/http"
	"strings"

	"whatsgo/internal/config"
	"whatsgo/internal/services"
	"whatsgo/internal/utils"
	"whatsgo/internal/ws"
	"whatsgo/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	coordinator *ws.Coordinator
	aiService   *services.AIService
	upgrader    websocket.Upgrader
}

func NewWebSocketHandler(coordinator *ws.Coordinator, aiService *services.AIService, cfg config.WebSocketConfig) *WebSocketHandler {
	return &WebSocketHandler{
		coordinator: coordinator,
		aiService:   aiService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				if !cfg.CheckOrigin {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.Contains(origin, "localhost") ||
					strings.Contains(origin, "127.0.0.1") ||
					strings.Contains(origin, "192.168.")
			},
		},
	}
}

// HandleChatWebSocket upgrades the connection and attaches it to the chat's
// fan-out group. Identity comes from the authenticated token; membership is
// verified before the subscription is registered.
func (h *WebSocketHandler) HandleChatWebSocket(c *gin.Context) {
	phone := c.GetString("phone_number")
	if phone == "" {
		utils.UnauthorizedResponse(c, "")
		return
	}

	chatID := c.Param("chat_id")
	if chatID == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Missing chat_id")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	gateway := ws.NewGateway(conn, h.coordinator, chatID, phone)
	if err := gateway.Run(); err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "chat not found"))
		case errors.Is(err, services.ErrNotAParticipant):
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "not a participant"))
		default:
			logger.LogError(err, "Failed to join chat room", map[string]interface{}{
				"chat_id": chatID,
				"user":    phone,
			})
		}
		conn.Close()
	}
}

// HandleAIWebSocket upgrades the connection to the assistant channel. The
// conversation must belong to the authenticated user.
func (h *WebSocketHandler) HandleAIWebSocket(c *gin.Context) {
	phone := c.GetString("phone_number")
	if phone == "" {
		utils.UnauthorizedResponse(c, "")
		return
	}

	conversationID := c.Param("conversation_id")
	conv, err := h.aiService.GetConversation(conversationID)
	if err != nil {
		utils.NotFoundResponse(c, "Conversation not found")
		return
	}
	if conv.PhoneNumber != phone {
		utils.ForbiddenResponse(c, "")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	ws.NewAIGateway(conn, h.aiService, conversationID, phone).Run()
}
