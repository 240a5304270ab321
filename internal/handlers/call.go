package handlers

import (
	"strconv"

	"whatsgo/internal/services"
	"whatsgo/internal/utils"
	"whatsgo/pkg/logger"

	"github.com/gin-gonic/gin"
)

const defaultCallHistoryLimit = 50

type CallHandler struct {
	callService *services.CallService
	chatService *services.ChatService
}

func NewCallHandler(callService *services.CallService, chatService *services.ChatService) *CallHandler {
	return &CallHandler{
		callService: callService,
		chatService: chatService,
	}
}

// History returns recent calls in a chat, newest first.
func (h *CallHandler) History(c *gin.Context) {
	phone := c.GetString("phone_number")
	chatID := c.Param("chat_id")

	member, err := h.chatService.IsParticipant(chatID, phone)
	if err != nil {
		logger.WithError(err).Error("Failed to check chat membership")
		utils.InternalErrorResponse(c, "")
		return
	}
	if !member {
		utils.ForbiddenResponse(c, "Not a participant of this chat")
		return
	}

	limit := defaultCallHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= defaultCallHistoryLimit {
			limit = n
		}
	}

	calls, err := h.callService.CallHistory(chatID, limit)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch call history")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, calls)
}
