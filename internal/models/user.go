package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User holds the account fields the realtime layer needs: display identity
// for fan-out payloads plus presence state.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PhoneNumber    string             `bson:"phone_number" json:"phone_number"`
	Username       string             `bson:"username" json:"username"`
	About          string             `bson:"about" json:"about"`
	ProfilePicture string             `bson:"profile_picture,omitempty" json:"profile_picture,omitempty"`

	IsOnline bool      `bson:"is_online" json:"is_online"`
	LastSeen time.Time `bson:"last_seen" json:"last_seen"`

	// Privacy
	ReadReceipts    bool   `bson:"read_receipts" json:"read_receipts"`
	LastSeenPrivacy string `bson:"last_seen_privacy" json:"last_seen_privacy"` // everyone, contacts, nobody

	// Security
	AppLockEnabled bool   `bson:"app_lock_enabled" json:"-"`
	AppLockPinHash string `bson:"app_lock_pin_hash,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
