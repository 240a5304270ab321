package ws

import (
	"encoding/json"
	"time"

	"whatsgo/internal/models"
)

// Wire tags. Inbound and outbound frames share the chat_message, typing,
// read_receipt, voice_call and video_call tags; message_edited and
// message_deleted are outbound-only.
const (
	EventChatMessage    = "chat_message"
	EventTyping         = "typing"
	EventReadReceipt    = "read_receipt"
	EventVoiceCall      = "voice_call"
	EventVideoCall      = "video_call"
	EventMessageEdited  = "message_edited"
	EventMessageDeleted = "message_deleted"
	EventAIMessage      = "ai_message"
	EventError          = "error"
)

// Call actions carried by voice_call/video_call frames.
const (
	CallActionStart    = "start"
	CallActionAnswer   = "answer"
	CallActionEnd      = "end"
	CallActionIncoming = "incoming"
	CallActionAnswered = "answered"
	CallActionEnded    = "ended"
)

// InboundFrame is the union of every frame a client may send on a chat
// connection. Type selects which fields are meaningful.
type InboundFrame struct {
	Type string `json:"type"`

	// chat_message
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	ReplyTo     string `json:"reply_to"`

	// typing
	IsTyping bool `json:"is_typing"`

	// read_receipt
	MessageID string `json:"message_id"`

	// voice_call / video_call
	Action string `json:"action"`
	CallID string `json:"call_id"`
}

// MessagePayload is the fan-out view of a chat message, carrying the
// sender's display identity alongside the message fields.
type MessagePayload struct {
	ID          string `json:"id"`
	Sender      string `json:"sender"`
	SenderName  string `json:"sender_name"`
	SenderPhoto string `json:"sender_photo,omitempty"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	Timestamp   string `json:"timestamp"`
	IsEdited    bool   `json:"is_edited"`
	ReplyTo     string `json:"reply_to,omitempty"`
}

// Event is one serialized fan-out payload. Exclude names a user whose own
// connections must not receive it (self-exclusion); empty means everyone in
// the room.
type Event struct {
	Type    string
	Exclude string
	data    []byte
}

// Data returns the serialized frame.
func (e *Event) Data() []byte { return e.data }

func newEvent(eventType, exclude string, frame interface{}) *Event {
	data, _ := json.Marshal(frame)
	return &Event{Type: eventType, Exclude: exclude, data: data}
}

// NewChatMessageEvent wraps a message payload for room fan-out. The sender's
// own connections are excluded; their client already rendered the message.
func NewChatMessageEvent(payload MessagePayload) *Event {
	return newEvent(EventChatMessage, payload.Sender, struct {
		Type    string         `json:"type"`
		Message MessagePayload `json:"message"`
	}{EventChatMessage, payload})
}

// NewTypingEvent announces a typing change. Always self-excluded: a client
// must never see its own typing echo.
func NewTypingEvent(user string, isTyping bool) *Event {
	return newEvent(EventTyping, user, struct {
		Type     string `json:"type"`
		User     string `json:"user"`
		IsTyping bool   `json:"is_typing"`
	}{EventTyping, user, isTyping})
}

// NewReadReceiptEvent announces that user has read messageID.
func NewReadReceiptEvent(messageID, user string) *Event {
	return newEvent(EventReadReceipt, "", struct {
		Type      string `json:"type"`
		MessageID string `json:"message_id"`
		User      string `json:"user"`
	}{EventReadReceipt, messageID, user})
}

// NewCallEvent announces a call transition. The tag (voice_call or
// video_call) follows the call's own type, not the inbound frame.
func NewCallEvent(callType, action, callID, caller string) *Event {
	tag := EventVoiceCall
	if callType == models.CallTypeVideo {
		tag = EventVideoCall
	}
	return newEvent(tag, "", struct {
		Type   string `json:"type"`
		Action string `json:"action"`
		CallID string `json:"call_id"`
		Caller string `json:"caller,omitempty"`
	}{tag, action, callID, caller})
}

// NewMessageEditedEvent carries an edit to everyone else in the room so all
// views converge on the new content.
func NewMessageEditedEvent(msg *models.Message) *Event {
	var editedAt string
	if msg.EditedAt != nil {
		editedAt = msg.EditedAt.Format(time.RFC3339)
	}
	return newEvent(EventMessageEdited, msg.Sender, struct {
		Type      string `json:"type"`
		MessageID string `json:"message_id"`
		Content   string `json:"content"`
		EditedAt  string `json:"edited_at"`
	}{EventMessageEdited, msg.MessageID, msg.Content, editedAt})
}

// NewMessageDeletedEvent announces a delete-for-everyone. Local-only deletes
// are never fanned out.
func NewMessageDeletedEvent(messageID, deletedBy string) *Event {
	return newEvent(EventMessageDeleted, deletedBy, struct {
		Type      string `json:"type"`
		MessageID string `json:"message_id"`
		Content   string `json:"content"`
	}{EventMessageDeleted, messageID, models.DeletedPlaceholder})
}

// errorFrame is sent to a single client whose request was rejected.
func errorFrame(message string) []byte {
	data, _ := json.Marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{EventError, message})
	return data
}

// aiFrame is the outbound frame on an AI conversation channel.
func aiFrame(content string, ts time.Time) []byte {
	data, _ := json.Marshal(struct {
		Type      string `json:"type"`
		Content   string `json:"content"`
		Timestamp string `json:"timestamp"`
	}{EventAIMessage, content, ts.Format(time.RFC3339)})
	return data
}
