package services

import (
	"context"
	"fmt"
	"time"

	"whatsgo/internal/models"
	"whatsgo/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PresenceService is the Presence Tracker: per-user online/last-seen and the
// per-(chat, user) typing flag.
type PresenceService struct {
	db     *mongo.Database
	users  *mongo.Collection
	typing *mongo.Collection
}

func NewPresenceService(db *mongo.Database) *PresenceService {
	return &PresenceService{
		db:     db,
		users:  db.Collection("users"),
		typing: db.Collection("typing_statuses"),
	}
}

// SetOnline flips a user's online flag. Going offline also stamps last_seen.
func (s *PresenceService) SetOnline(phone string, online bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	set := bson.M{"is_online": online}
	if !online {
		set["last_seen"] = time.Now()
	}

	if _, err := s.users.UpdateOne(ctx, bson.M{"phone_number": phone}, bson.M{"$set": set}); err != nil {
		logger.LogError(err, "Failed to update presence", map[string]interface{}{
			"phone_number": phone,
			"is_online":    online,
		})
		return fmt.Errorf("failed to update presence: %w", err)
	}

	return nil
}

// SetTyping upserts the (chat, user) typing flag in place. There is no
// typing history, only the current value.
func (s *PresenceService) SetTyping(chatID, phone string, typing bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"chat_id": chatID, "phone_number": phone}
	update := bson.M{"$set": bson.M{
		"is_typing":  typing,
		"updated_at": time.Now(),
	}}

	_, err := s.typing.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update typing status: %w", err)
	}

	return nil
}

// TypingUsers returns who is currently typing in a chat.
func (s *PresenceService) TypingUsers(chatID string) ([]models.TypingStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := s.typing.Find(ctx, bson.M{"chat_id": chatID, "is_typing": true})
	if err != nil {
		return nil, fmt.Errorf("failed to get typing users: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []models.TypingStatus
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode typing users: %w", err)
	}

	return rows, nil
}

// OnlineUsers returns the phone numbers currently marked online.
func (s *PresenceService) OnlineUsers() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := s.users.Find(ctx, bson.M{"is_online": true},
		options.Find().SetProjection(bson.M{"phone_number": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to get online users: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		PhoneNumber string `bson:"phone_number"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode online users: %w", err)
	}

	phones := make([]string, 0, len(rows))
	for _, r := range rows {
		phones = append(phones, r.PhoneNumber)
	}
	return phones, nil
}
