package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AIConversation is a one-on-one thread between a user and the assistant.
// It has its own fan-out scope, independent of chat rooms.
type AIConversation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	PhoneNumber    string             `bson:"phone_number" json:"phone_number"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// AIMessage is one turn in an AI conversation. IsUser distinguishes the
// user's messages from the assistant's replies.
type AIMessage struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	IsUser         bool               `bson:"is_user" json:"is_user"`
	Content        string             `bson:"content" json:"content"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
