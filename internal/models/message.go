package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message content types
const (
	MessageTypeText     = "text"
	MessageTypeImage    = "image"
	MessageTypeVideo    = "video"
	MessageTypeAudio    = "audio"
	MessageTypeVoice    = "voice"
	MessageTypeDocument = "document"
	MessageTypeSticker  = "sticker"
	MessageTypeContact  = "contact"
	MessageTypeLocation = "location"
)

// DeletedPlaceholder replaces the content of a message deleted for everyone.
const DeletedPlaceholder = "This message was deleted"

// Message is the immutable core of a chat message plus its mutable soft
// state (edit and delete flags). Sender is a weak reference by phone number;
// deleting an account does not destroy history.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MessageID string             `bson:"message_id" json:"message_id"`
	ChatID    string             `bson:"chat_id" json:"chat_id"`
	Sender    string             `bson:"sender" json:"sender"`

	MessageType string `bson:"message_type" json:"message_type"`
	Content     string `bson:"content" json:"content"`

	// ReplyTo references another message in the same chat.
	ReplyTo string `bson:"reply_to,omitempty" json:"reply_to,omitempty"`

	IsDeleted bool       `bson:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
	IsEdited  bool       `bson:"is_edited" json:"is_edited"`
	EditedAt  *time.Time `bson:"edited_at,omitempty" json:"edited_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Delivery states, strictly ordered: sent < delivered < read.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// MessageStatus is the Delivery Ledger row: one per (message, recipient),
// advancing monotonically and never regressing.
type MessageStatus struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MessageID   string             `bson:"message_id" json:"message_id"`
	PhoneNumber string             `bson:"phone_number" json:"phone_number"`
	Status      string             `bson:"status" json:"status"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
}

// statusRank orders delivery states for the monotonic-advance check.
var statusRank = map[string]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// StatusAdvances reports whether moving from current to next is a forward
// transition in the delivery ledger. Equal or backward moves are no-ops.
func StatusAdvances(current, next string) bool {
	cur, ok := statusRank[current]
	if !ok {
		return false
	}
	nxt, ok := statusRank[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// StatusesBelow returns the states strictly below the given state, used to
// build update filters that only ever advance the ledger.
func StatusesBelow(status string) []string {
	rank, ok := statusRank[status]
	if !ok {
		return nil
	}
	below := make([]string, 0, rank)
	for s, r := range statusRank {
		if r < rank {
			below = append(below, s)
		}
	}
	return below
}

// DeletedMessage is the tombstone captured at delete time so a client can
// still render "This message was deleted" with the original preserved.
type DeletedMessage struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MessageID       string             `bson:"message_id" json:"message_id"`
	DeletedBy       string             `bson:"deleted_by" json:"deleted_by"`
	ForEveryone     bool               `bson:"for_everyone" json:"for_everyone"`
	OriginalContent string             `bson:"original_content" json:"original_content"`
	DeletedAt       time.Time          `bson:"deleted_at" json:"deleted_at"`
}
