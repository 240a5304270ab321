package services

import (
	"context"
	"fmt"
	"time"

	"whatsgo/internal/ai"
	"whatsgo/internal/models"
	"whatsgo/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// aiHistoryLimit caps how many prior turns are replayed to the responder.
const aiHistoryLimit = 20

// AIService persists AI conversations and orchestrates the external
// responder. The responder is opaque and possibly slow; Respond is called
// from the AI gateway's own goroutine so chat rooms are never blocked by it.
type AIService struct {
	db            *mongo.Database
	conversations *mongo.Collection
	messages      *mongo.Collection
	responder     ai.Responder
}

func NewAIService(db *mongo.Database, responder ai.Responder) *AIService {
	return &AIService{
		db:            db,
		conversations: db.Collection("ai_conversations"),
		messages:      db.Collection("ai_messages"),
		responder:     responder,
	}
}

// GetConversation looks a conversation up by its public id.
func (s *AIService) GetConversation(conversationID string) (*models.AIConversation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var conv models.AIConversation
	err := s.conversations.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&conv)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &conv, nil
}

// CreateConversation starts a new AI thread for a user.
func (s *AIService) CreateConversation(phone string) (*models.AIConversation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	conv := &models.AIConversation{
		ConversationID: uuid.NewString(),
		PhoneNumber:    phone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := s.conversations.InsertOne(ctx, conv); err != nil {
		logger.LogError(err, "Failed to create AI conversation", map[string]interface{}{
			"phone_number": phone,
		})
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv, nil
}

// Respond saves the user's message, asks the responder for a reply with the
// recent history as context, saves the reply and returns it. A responder
// failure degrades to the canned fallback; the user's message is kept either
// way.
func (s *AIService) Respond(ctx context.Context, conversationID, userText string) (string, error) {
	if err := s.saveMessage(conversationID, userText, true); err != nil {
		return "", err
	}

	history, err := s.recentTurns(conversationID)
	if err != nil {
		logger.LogError(err, "Failed to load AI history", map[string]interface{}{
			"conversation_id": conversationID,
		})
		history = nil
	}

	reply, err := s.responder.GenerateResponse(ctx, userText, history)
	if err != nil {
		logger.LogError(err, "AI responder failed", map[string]interface{}{
			"conversation_id": conversationID,
		})
		reply = ai.FallbackReply
	}

	if err := s.saveMessage(conversationID, reply, false); err != nil {
		return "", err
	}

	return reply, nil
}

func (s *AIService) saveMessage(conversationID, content string, isUser bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := &models.AIMessage{
		ConversationID: conversationID,
		IsUser:         isUser,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to save AI message: %w", err)
	}

	_, err := s.conversations.UpdateOne(ctx,
		bson.M{"conversation_id": conversationID},
		bson.M{"$set": bson.M{"updated_at": time.Now()}},
	)
	if err != nil {
		logger.LogError(err, "Failed to touch AI conversation", map[string]interface{}{
			"conversation_id": conversationID,
		})
	}

	return nil
}

// recentTurns returns the latest turns in chronological order, excluding the
// user message just saved.
func (s *AIService) recentTurns(conversationID string) ([]ai.Turn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetLimit(aiHistoryLimit + 1).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.messages.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get AI history: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []models.AIMessage
	if err = cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode AI history: %w", err)
	}

	// Drop the just-saved user message and reverse to chronological order.
	if len(msgs) > 0 {
		msgs = msgs[1:]
	}
	turns := make([]ai.Turn, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		turns = append(turns, ai.Turn{IsUser: msgs[i].IsUser, Content: msgs[i].Content})
	}

	return turns, nil
}

// ListMessages returns a conversation's messages, oldest first.
func (s *AIService) ListMessages(conversationID string, limit int) ([]models.AIMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := s.messages.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get AI messages: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []models.AIMessage
	if err = cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode AI messages: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
