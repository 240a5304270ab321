package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"whatsgo/internal/services"
	"whatsgo/internal/utils"
	"whatsgo/internal/ws"
	"whatsgo/pkg/logger"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService     *services.ChatService
	messageService  *services.MessageService
	deliveryService *services.DeliveryService
	presenceService *services.PresenceService
	coordinator     *ws.Coordinator
	historyPageSize int
}

func NewChatHandler(
	chatService *services.ChatService,
	messageService *services.MessageService,
	deliveryService *services.DeliveryService,
	presenceService *services.PresenceService,
	coordinator *ws.Coordinator,
	historyPageSize int,
) *ChatHandler {
	return &ChatHandler{
		chatService:     chatService,
		messageService:  messageService,
		deliveryService: deliveryService,
		presenceService: presenceService,
		coordinator:     coordinator,
		historyPageSize: historyPageSize,
	}
}

// ListChats returns the caller's chats with unread counts.
func (h *ChatHandler) ListChats(c *gin.Context) {
	phone := c.GetString("phone_number")

	chats, err := h.chatService.UserChats(phone)
	if err != nil {
		logger.WithError(err).Error("Failed to list chats")
		utils.InternalErrorResponse(c, "")
		return
	}

	type chatEntry struct {
		ChatID      string `json:"chat_id"`
		ChatType    string `json:"chat_type"`
		UnreadCount int64  `json:"unread_count"`
	}

	entries := make([]chatEntry, 0, len(chats))
	for _, chat := range chats {
		unread, err := h.deliveryService.UnreadCount(chat.ChatID, phone)
		if err != nil {
			logger.WithError(err).Warn("Failed to compute unread count")
		}
		entries = append(entries, chatEntry{
			ChatID:      chat.ChatID,
			ChatType:    chat.ChatType,
			UnreadCount: unread,
		})
	}

	utils.SuccessResponse(c, entries)
}

// CreatePrivateChat creates a one-to-one chat with another user.
func (h *ChatHandler) CreatePrivateChat(c *gin.Context) {
	phone := c.GetString("phone_number")

	var req struct {
		Participant string `json:"participant" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Missing participant")
		return
	}

	chat, err := h.chatService.CreatePrivateChat(phone, req.Participant)
	if err != nil {
		logger.WithError(err).Error("Failed to create private chat")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, chat)
}

// CreateGroupChat creates a group chat. The creator becomes its first admin.
func (h *ChatHandler) CreateGroupChat(c *gin.Context) {
	phone := c.GetString("phone_number")

	var req struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		Members     []string `json:"members" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Missing name or members")
		return
	}

	chat, err := h.chatService.CreateGroupChat(phone, req.Name, req.Description, req.Members)
	if err != nil {
		logger.WithError(err).Error("Failed to create group chat")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, chat)
}

// History returns a page of messages, newest page first, anchored on an
// optional before message id.
func (h *ChatHandler) History(c *gin.Context) {
	phone := c.GetString("phone_number")
	chatID := c.Param("chat_id")

	if !h.requireParticipant(c, chatID, phone) {
		return
	}

	limit := h.historyPageSize
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= h.historyPageSize {
			limit = n
		}
	}

	messages, err := h.messageService.ListMessages(chatID, phone, limit, c.Query("before"))
	if err != nil {
		logger.WithError(err).Error("Failed to list messages")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponseWithMeta(c, messages, &utils.Meta{
		Limit: limit,
		Total: len(messages),
	})
}

// EditMessage replaces a message's content. Only the original sender may
// edit; the change is fanned out to connected participants.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	phone := c.GetString("phone_number")
	messageID := c.Param("message_id")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Missing content")
		return
	}

	msg, err := h.coordinator.EditMessage(messageID, phone, req.Content)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, msg)
}

// DeleteMessage deletes a message for the caller, or for everyone when
// for_everyone=true.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	phone := c.GetString("phone_number")
	messageID := c.Param("message_id")
	forEveryone := c.Query("for_everyone") == "true"

	if err := h.coordinator.DeleteMessage(messageID, phone, forEveryone); err != nil {
		h.writeDomainError(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Message deleted", nil)
}

// MessageStatuses returns per-recipient delivery state for one message.
func (h *ChatHandler) MessageStatuses(c *gin.Context) {
	phone := c.GetString("phone_number")
	messageID := c.Param("message_id")

	msg, err := h.messageService.GetMessage(messageID)
	if err != nil {
		h.writeDomainError(c, err)
		return
	}
	if !h.requireParticipant(c, msg.ChatID, phone) {
		return
	}

	statuses, err := h.deliveryService.MessageStatuses(messageID)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch message statuses")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, statuses)
}

// SetParticipantFlag pins, archives, or mutes a chat for the caller.
func (h *ChatHandler) SetParticipantFlag(c *gin.Context) {
	phone := c.GetString("phone_number")
	chatID := c.Param("chat_id")

	var req struct {
		Flag  string `json:"flag" binding:"required"`
		Value bool   `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Missing flag")
		return
	}

	if !h.requireParticipant(c, chatID, phone) {
		return
	}

	if err := h.chatService.SetParticipantFlag(chatID, phone, req.Flag, req.Value); err != nil {
		h.writeDomainError(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Flag updated", nil)
}

// SetGroupSendPolicy toggles admin-only posting. Caller must be an admin.
func (h *ChatHandler) SetGroupSendPolicy(c *gin.Context) {
	phone := c.GetString("phone_number")
	chatID := c.Param("chat_id")

	var req struct {
		OnlyAdminsCanSend bool `json:"only_admins_can_send"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	admin, err := h.chatService.IsGroupAdmin(chatID, phone)
	if err != nil {
		logger.WithError(err).Error("Failed to check group admin")
		utils.InternalErrorResponse(c, "")
		return
	}
	if !admin {
		utils.ForbiddenResponse(c, "Only group admins can change settings")
		return
	}

	if err := h.chatService.SetGroupSendPolicy(chatID, req.OnlyAdminsCanSend); err != nil {
		h.writeDomainError(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Settings updated", nil)
}

// AddGroupAdmin promotes a participant to group admin.
func (h *ChatHandler) AddGroupAdmin(c *gin.Context) {
	phone := c.GetString("phone_number")
	chatID := c.Param("chat_id")

	var req struct {
		PhoneNumber string `json:"phone_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Missing phone_number")
		return
	}

	admin, err := h.chatService.IsGroupAdmin(chatID, phone)
	if err != nil {
		logger.WithError(err).Error("Failed to check group admin")
		utils.InternalErrorResponse(c, "")
		return
	}
	if !admin {
		utils.ForbiddenResponse(c, "Only group admins can promote members")
		return
	}

	member, err := h.chatService.IsParticipant(chatID, req.PhoneNumber)
	if err != nil || !member {
		utils.ErrorResponse(c, http.StatusBadRequest, "User is not a participant")
		return
	}

	if err := h.chatService.AddGroupAdmin(chatID, req.PhoneNumber); err != nil {
		h.writeDomainError(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Admin added", nil)
}

// TypingUsers reports who is currently typing in the chat.
func (h *ChatHandler) TypingUsers(c *gin.Context) {
	phone := c.GetString("phone_number")
	chatID := c.Param("chat_id")

	if !h.requireParticipant(c, chatID, phone) {
		return
	}

	typing, err := h.presenceService.TypingUsers(chatID)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch typing users")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, typing)
}

// OnlineUsers reports which users currently have a live connection.
func (h *ChatHandler) OnlineUsers(c *gin.Context) {
	online, err := h.presenceService.OnlineUsers()
	if err != nil {
		logger.WithError(err).Error("Failed to fetch online users")
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, online)
}

func (h *ChatHandler) requireParticipant(c *gin.Context, chatID, phone string) bool {
	member, err := h.chatService.IsParticipant(chatID, phone)
	if err != nil {
		logger.WithError(err).Error("Failed to check chat membership")
		utils.InternalErrorResponse(c, "")
		return false
	}
	if !member {
		utils.ForbiddenResponse(c, "Not a participant of this chat")
		return false
	}
	return true
}

func (h *ChatHandler) writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrChatNotFound),
		errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, services.ErrUserNotFound):
		utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, services.ErrNotAParticipant),
		errors.Is(err, services.ErrPermissionDenied):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, services.ErrInvalidReference),
		errors.Is(err, services.ErrInvalidState):
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		logger.WithError(err).Error("Unhandled domain error")
		utils.InternalErrorResponse(c, "")
	}
}
