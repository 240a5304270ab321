package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat types
const (
	ChatTypePrivate = "private"
	ChatTypeGroup   = "group"
)

// Chat is a room: a private conversation or a group. Participants and
// messages live in their own collections keyed by ChatID.
type Chat struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID    string             `bson:"chat_id" json:"chat_id"`
	ChatType  string             `bson:"chat_type" json:"chat_type"` // private, group
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// ChatParticipant is the (chat, user) membership row with per-chat soft
// state. Unique per (chat_id, phone_number); never physically removed.
type ChatParticipant struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID      string             `bson:"chat_id" json:"chat_id"`
	PhoneNumber string             `bson:"phone_number" json:"phone_number"`
	IsPinned    bool               `bson:"is_pinned" json:"is_pinned"`
	IsArchived  bool               `bson:"is_archived" json:"is_archived"`
	IsMuted     bool               `bson:"is_muted" json:"is_muted"`
	JoinedAt    time.Time          `bson:"joined_at" json:"joined_at"`
}

// Group carries the group-only settings for a group chat.
type Group struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID      string             `bson:"chat_id" json:"chat_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`

	OnlyAdminsCanSend bool `bson:"only_admins_can_send" json:"only_admins_can_send"`
	OnlyAdminsCanEdit bool `bson:"only_admins_can_edit" json:"only_admins_can_edit"`

	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// GroupAdmin marks a user as admin of a group chat. Unique per
// (chat_id, phone_number).
type GroupAdmin struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID      string             `bson:"chat_id" json:"chat_id"`
	PhoneNumber string             `bson:"phone_number" json:"phone_number"`
	AddedAt     time.Time          `bson:"added_at" json:"added_at"`
}

// TypingStatus is the per-(chat, user) typing flag, upserted in place.
type TypingStatus struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID      string             `bson:"chat_id" json:"chat_id"`
	PhoneNumber string             `bson:"phone_number" json:"phone_number"`
	IsTyping    bool               `bson:"is_typing" json:"is_typing"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
