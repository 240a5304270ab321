package services

import (
	"context"
	"fmt"
	"time"

	"whatsgo/internal/models"
	"whatsgo/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// DeliveryService is the Delivery Ledger: per-(message, recipient) state,
// advancing sent -> delivered -> read and never regressing. Rows are created
// by MessageService at message-creation time; this service only moves them
// forward.
type DeliveryService struct {
	db       *mongo.Database
	statuses *mongo.Collection
	messages *mongo.Collection
}

func NewDeliveryService(db *mongo.Database) *DeliveryService {
	return &DeliveryService{
		db:       db,
		statuses: db.Collection("message_statuses"),
		messages: db.Collection("messages"),
	}
}

// MarkDelivered advances the ledger rows for the given recipients to
// delivered. Rows already at delivered or read are left alone.
func (s *DeliveryService) MarkDelivered(messageID string, recipients []string) error {
	if len(recipients) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{
		"message_id":   messageID,
		"phone_number": bson.M{"$in": recipients},
		"status":       bson.M{"$in": models.StatusesBelow(models.StatusDelivered)},
	}
	update := bson.M{"$set": bson.M{
		"status":    models.StatusDelivered,
		"timestamp": time.Now(),
	}}

	if _, err := s.statuses.UpdateMany(ctx, filter, update); err != nil {
		logger.LogError(err, "Failed to mark delivered", map[string]interface{}{
			"message_id": messageID,
		})
		return fmt.Errorf("failed to mark delivered: %w", err)
	}

	return nil
}

// MarkRead advances one recipient's row to read. Re-marking an already-read
// row matches nothing and is a no-op, which makes the operation idempotent.
func (s *DeliveryService) MarkRead(messageID, phone string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{
		"message_id":   messageID,
		"phone_number": phone,
		"status":       bson.M{"$in": models.StatusesBelow(models.StatusRead)},
	}
	update := bson.M{"$set": bson.M{
		"status":    models.StatusRead,
		"timestamp": time.Now(),
	}}

	if _, err := s.statuses.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark read: %w", err)
	}

	return nil
}

// MessageStatuses returns the ledger rows for one message.
func (s *DeliveryService) MessageStatuses(messageID string) ([]models.MessageStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := s.statuses.Find(ctx, bson.M{"message_id": messageID})
	if err != nil {
		return nil, fmt.Errorf("failed to get statuses: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []models.MessageStatus
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode statuses: %w", err)
	}

	return rows, nil
}

// UnreadCount returns how many messages in a chat the user has not read yet.
// Concurrent, lock-free read used for room-list hydration.
func (s *DeliveryService) UnreadCount(chatID, phone string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pipeline := []bson.M{
		{"$match": bson.M{
			"phone_number": phone,
			"status":       bson.M{"$ne": models.StatusRead},
		}},
		{"$lookup": bson.M{
			"from":         "messages",
			"localField":   "message_id",
			"foreignField": "message_id",
			"as":           "message",
		}},
		{"$unwind": "$message"},
		{"$match": bson.M{"message.chat_id": chatID}},
		{"$count": "unread"},
	}

	cursor, err := s.statuses.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Unread int64 `bson:"unread"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode unread count: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}

	return results[0].Unread, nil
}
