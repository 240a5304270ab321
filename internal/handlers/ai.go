package handlers

import (
	"strconv"

	"whatsgo/internal/services"
	"whatsgo/internal/utils"
	"whatsgo/pkg/logger"

	"github.com/gin-gonic/gin"
)

const defaultAIHistoryLimit = 50

type AIHandler struct {
	aiService *services.AIService
}

func NewAIHandler(aiService *services.AIService) *AIHandler {
	return &AIHandler{aiService: aiService}
}

// CreateConversation starts a new assistant conversation for the caller.
func (h *AIHandler) CreateConversation(c *gin.Context) {
	phone := c.GetString("phone_number")

	conv, err := h.aiService.CreateConversation(phone)
	if err != nil {
		logger.WithError(err).Error("Failed to create AI conversation")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, conv)
}

// History returns the stored transcript of one conversation.
func (h *AIHandler) History(c *gin.Context) {
	phone := c.GetString("phone_number")
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

	limit := defaultAIHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= defaultAIHistoryLimit {
			limit = n
		}
	}

	messages, err := h.aiService.ListMessages(conversationID, limit)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch AI messages")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, messages)
}
