package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Call types
const (
	CallTypeVoice = "voice"
	CallTypeVideo = "video"
)

// Call lifecycle states
const (
	CallInitiated = "initiated"
	CallRinging   = "ringing"
	CallAnswered  = "answered"
	CallEnded     = "ended"
	CallMissed    = "missed"
	CallDeclined  = "declined"
)

// Call is one voice or video call within a chat.
type Call struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CallID   string             `bson:"call_id" json:"call_id"`
	ChatID   string             `bson:"chat_id" json:"chat_id"`
	Caller   string             `bson:"caller" json:"caller"`
	CallType string             `bson:"call_type" json:"call_type"`
	Status   string             `bson:"status" json:"status"`

	StartedAt  time.Time  `bson:"started_at" json:"started_at"`
	AnsweredAt *time.Time `bson:"answered_at,omitempty" json:"answered_at,omitempty"`
	EndedAt    *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
	Duration   int64      `bson:"duration" json:"duration"` // whole seconds, 0 if never answered
}

// CallParticipant tracks per-user joined/left times for a call. Unique per
// (call_id, phone_number).
type CallParticipant struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CallID      string             `bson:"call_id" json:"call_id"`
	PhoneNumber string             `bson:"phone_number" json:"phone_number"`
	JoinedAt    *time.Time         `bson:"joined_at,omitempty" json:"joined_at,omitempty"`
	LeftAt      *time.Time         `bson:"left_at,omitempty" json:"left_at,omitempty"`
}

// CanAnswer reports whether a call in the given state may transition to
// answered. A second answer is rejected rather than re-stamped.
func CanAnswer(status string) bool {
	return status == CallInitiated || status == CallRinging
}

// IsTerminalCallStatus reports whether the state admits no further
// transitions. End is valid from any non-terminal state.
func IsTerminalCallStatus(status string) bool {
	switch status {
	case CallEnded, CallMissed, CallDeclined:
		return true
	}
	return false
}

// CallDuration computes the recorded duration in whole seconds: elapsed
// between answer and end, or 0 when the call was never answered.
func CallDuration(answeredAt *time.Time, endedAt time.Time) int64 {
	if answeredAt == nil {
		return 0
	}
	return int64(endedAt.Sub(*answeredAt).Seconds())
}
