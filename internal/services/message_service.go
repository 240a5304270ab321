package services

import (
	"context"
	"fmt"
	"time"

	"whatsgo/internal/models"
	"whatsgo/pkg/database"
	"whatsgo/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageService owns the message history: creation, edit, the tombstone
// flow for deletes, and paginated reads.
type MessageService struct {
	db        *mongo.Database
	messages  *mongo.Collection
	statuses  *mongo.Collection
	tombstone *mongo.Collection
}

func NewMessageService(db *mongo.Database) *MessageService {
	return &MessageService{
		db:        db,
		messages:  db.Collection("messages"),
		statuses:  db.Collection("message_statuses"),
		tombstone: db.Collection("deleted_messages"),
	}
}

// CreateMessage persists a message together with one sent-state delivery row
// per recipient. The writes run in a single transaction: either the message
// and all its ledger rows exist, or none do.
func (s *MessageService) CreateMessage(chatID, sender, content, messageType, replyTo string, recipients []string) (*models.Message, error) {
	now := time.Now()
	msg := &models.Message{
		MessageID:   uuid.NewString(),
		ChatID:      chatID,
		Sender:      sender,
		MessageType: messageType,
		Content:     content,
		ReplyTo:     replyTo,
		CreatedAt:   now,
	}

	_, err := database.WithTransaction(func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.messages.InsertOne(sc, msg); err != nil {
			return nil, err
		}

		if len(recipients) == 0 {
			return nil, nil
		}

		rows := make([]interface{}, 0, len(recipients))
		for _, phone := range recipients {
			rows = append(rows, &models.MessageStatus{
				MessageID:   msg.MessageID,
				PhoneNumber: phone,
				Status:      models.StatusSent,
				Timestamp:   now,
			})
		}
		if _, err := s.statuses.InsertMany(sc, rows); err != nil {
			return nil, err
		}

		return nil, nil
	})
	if err != nil {
		logger.LogError(err, "Failed to create message", map[string]interface{}{
			"chat_id": chatID,
			"sender":  sender,
		})
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	return msg, nil
}

// GetMessage looks a message up by its public id.
func (s *MessageService) GetMessage(messageID string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var msg models.Message
	err := s.messages.FindOne(ctx, bson.M{"message_id": messageID}).Decode(&msg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &msg, nil
}

// EditMessage replaces the content and stamps the edit flag, returning the
// updated message.
func (s *MessageService) EditMessage(messageID, newContent string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"content":   newContent,
			"is_edited": true,
			"edited_at": now,
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var msg models.Message
	err := s.messages.FindOneAndUpdate(ctx, bson.M{"message_id": messageID}, update, opts).Decode(&msg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}

	return &msg, nil
}

// DeleteMessage records a tombstone with the original content. When
// forEveryone is set the message content is redacted to the canonical
// placeholder for all participants; otherwise the message stays intact and
// only the requester's history view hides it.
func (s *MessageService) DeleteMessage(msg *models.Message, deletedBy string, forEveryone bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	stone := &models.DeletedMessage{
		MessageID:       msg.MessageID,
		DeletedBy:       deletedBy,
		ForEveryone:     forEveryone,
		OriginalContent: msg.Content,
		DeletedAt:       now,
	}
	if _, err := s.tombstone.InsertOne(ctx, stone); err != nil {
		return fmt.Errorf("failed to record deleted message: %w", err)
	}

	if !forEveryone {
		return nil
	}

	update := bson.M{
		"$set": bson.M{
			"is_deleted": true,
			"deleted_at": now,
			"content":    models.DeletedPlaceholder,
		},
	}
	if _, err := s.messages.UpdateOne(ctx, bson.M{"message_id": msg.MessageID}, update); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	return nil
}

// ListMessages returns a page of chat history for one viewer, oldest first.
// Messages the viewer deleted locally are filtered out; messages deleted for
// everyone come back with the placeholder content already in place.
func (s *MessageService) ListMessages(chatID, viewer string, limit int, beforeID string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	filter := bson.M{"chat_id": chatID}
	if beforeID != "" {
		var anchor models.Message
		err := s.messages.FindOne(ctx, bson.M{"message_id": beforeID}).Decode(&anchor)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				return nil, ErrMessageNotFound
			}
			return nil, fmt.Errorf("failed to resolve page anchor: %w", err)
		}
		filter["created_at"] = bson.M{"$lt": anchor.CreatedAt}
	}

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer cursor.Close(ctx)

	var page []models.Message
	if err = cursor.All(ctx, &page); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	hidden, err := s.locallyDeleted(ctx, viewer, page)
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order, dropping the viewer's local deletes.
	out := make([]models.Message, 0, len(page))
	for i := len(page) - 1; i >= 0; i-- {
		if hidden[page[i].MessageID] {
			continue
		}
		out = append(out, page[i])
	}

	return out, nil
}

// locallyDeleted returns the ids within the page that the viewer deleted for
// themselves only.
func (s *MessageService) locallyDeleted(ctx context.Context, viewer string, page []models.Message) (map[string]bool, error) {
	if len(page) == 0 {
		return map[string]bool{}, nil
	}

	ids := make([]string, 0, len(page))
	for _, m := range page {
		ids = append(ids, m.MessageID)
	}

	cursor, err := s.tombstone.Find(ctx, bson.M{
		"message_id":   bson.M{"$in": ids},
		"deleted_by":   viewer,
		"for_everyone": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get tombstones: %w", err)
	}
	defer cursor.Close(ctx)

	var stones []models.DeletedMessage
	if err = cursor.All(ctx, &stones); err != nil {
		return nil, fmt.Errorf("failed to decode tombstones: %w", err)
	}

	hidden := make(map[string]bool, len(stones))
	for _, stone := range stones {
		hidden[stone.MessageID] = true
	}
	return hidden, nil
}
