package services

import (
	"context"
	"fmt"
	"time"

	"whatsgo/internal/models"
	"whatsgo/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatService owns chats, participant rosters and group settings.
type ChatService struct {
	db           *mongo.Database
	chats        *mongo.Collection
	participants *mongo.Collection
	groups       *mongo.Collection
	groupAdmins  *mongo.Collection
}

func NewChatService(db *mongo.Database) *ChatService {
	return &ChatService{
		db:           db,
		chats:        db.Collection("chats"),
		participants: db.Collection("chat_participants"),
		groups:       db.Collection("groups"),
		groupAdmins:  db.Collection("group_admins"),
	}
}

// CreatePrivateChat creates a two-person chat with both participant rows.
func (s *ChatService) CreatePrivateChat(user1, user2 string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	chat := &models.Chat{
		ChatID:    uuid.NewString(),
		ChatType:  models.ChatTypePrivate,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.chats.InsertOne(ctx, chat); err != nil {
		logger.LogError(err, "Failed to create private chat", map[string]interface{}{
			"user1": user1,
			"user2": user2,
		})
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	for _, phone := range []string{user1, user2} {
		participant := &models.ChatParticipant{
			ChatID:      chat.ChatID,
			PhoneNumber: phone,
			JoinedAt:    now,
		}
		if _, err := s.participants.InsertOne(ctx, participant); err != nil {
			return nil, fmt.Errorf("failed to add participant: %w", err)
		}
	}

	return chat, nil
}

// CreateGroupChat creates a group chat. The creator becomes the first admin.
func (s *ChatService) CreateGroupChat(creator, name, description string, members []string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	chat := &models.Chat{
		ChatID:    uuid.NewString(),
		ChatType:  models.ChatTypeGroup,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.chats.InsertOne(ctx, chat); err != nil {
		logger.LogError(err, "Failed to create group chat", map[string]interface{}{
			"creator": creator,
			"name":    name,
		})
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	group := &models.Group{
		ChatID:            chat.ChatID,
		Name:              name,
		Description:       description,
		OnlyAdminsCanEdit: true,
		CreatedBy:         creator,
		CreatedAt:         now,
	}
	if _, err := s.groups.InsertOne(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	admin := &models.GroupAdmin{
		ChatID:      chat.ChatID,
		PhoneNumber: creator,
		AddedAt:     now,
	}
	if _, err := s.groupAdmins.InsertOne(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to add group admin: %w", err)
	}

	seen := map[string]bool{}
	for _, phone := range append([]string{creator}, members...) {
		if seen[phone] {
			continue
		}
		seen[phone] = true

		participant := &models.ChatParticipant{
			ChatID:      chat.ChatID,
			PhoneNumber: phone,
			JoinedAt:    now,
		}
		if _, err := s.participants.InsertOne(ctx, participant); err != nil {
			return nil, fmt.Errorf("failed to add participant: %w", err)
		}
	}

	return chat, nil
}

// GetChat looks a chat up by its public id.
func (s *ChatService) GetChat(chatID string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var chat models.Chat
	err := s.chats.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&chat)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	return &chat, nil
}

// IsParticipant reports whether the user has a participant row in the chat.
func (s *ChatService) IsParticipant(chatID, phone string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := s.participants.CountDocuments(ctx, bson.M{
		"chat_id":      chatID,
		"phone_number": phone,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}

	return count > 0, nil
}

// Participants returns the full roster of a chat.
func (s *ChatService) Participants(chatID string) ([]models.ChatParticipant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cursor, err := s.participants.Find(ctx, bson.M{"chat_id": chatID})
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer cursor.Close(ctx)

	var participants []models.ChatParticipant
	if err = cursor.All(ctx, &participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants: %w", err)
	}

	return participants, nil
}

// GroupSettings returns the group document for a group chat, or nil for a
// private chat.
func (s *ChatService) GroupSettings(chatID string) (*models.Group, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var group models.Group
	err := s.groups.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&group)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return &group, nil
}

// IsGroupAdmin reports whether the user is an admin of the group chat.
func (s *ChatService) IsGroupAdmin(chatID, phone string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := s.groupAdmins.CountDocuments(ctx, bson.M{
		"chat_id":      chatID,
		"phone_number": phone,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check group admin: %w", err)
	}

	return count > 0, nil
}

// AddGroupAdmin promotes a participant to group admin. Idempotent.
func (s *ChatService) AddGroupAdmin(chatID, phone string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.groupAdmins.UpdateOne(ctx,
		bson.M{"chat_id": chatID, "phone_number": phone},
		bson.M{"$setOnInsert": bson.M{
			"chat_id":      chatID,
			"phone_number": phone,
			"added_at":     time.Now(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to add group admin: %w", err)
	}
	return nil
}

// SetGroupSendPolicy toggles the admins-only send restriction.
func (s *ChatService) SetGroupSendPolicy(chatID string, onlyAdmins bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := s.groups.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"only_admins_can_send": onlyAdmins}},
	)
	if err != nil {
		return fmt.Errorf("failed to update group policy: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrChatNotFound
	}
	return nil
}

// SetParticipantFlag updates one of the per-chat soft flags (is_pinned,
// is_archived, is_muted) for a participant.
func (s *ChatService) SetParticipantFlag(chatID, phone, flag string, value bool) error {
	switch flag {
	case "is_pinned", "is_archived", "is_muted":
	default:
		return fmt.Errorf("unknown participant flag: %s", flag)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := s.participants.UpdateOne(ctx,
		bson.M{"chat_id": chatID, "phone_number": phone},
		bson.M{"$set": bson.M{flag: value}},
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotAParticipant
	}
	return nil
}

// UserChats returns the chats a user participates in, pinned first, most
// recently updated next. Used for room-list hydration.
func (s *ChatService) UserChats(phone string) ([]models.Chat, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := s.participants.Find(ctx, bson.M{"phone_number": phone})
	if err != nil {
		return nil, fmt.Errorf("failed to get memberships: %w", err)
	}
	defer cursor.Close(ctx)

	var memberships []models.ChatParticipant
	if err = cursor.All(ctx, &memberships); err != nil {
		return nil, fmt.Errorf("failed to decode memberships: %w", err)
	}

	if len(memberships) == 0 {
		return []models.Chat{}, nil
	}

	chatIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		chatIDs = append(chatIDs, m.ChatID)
	}

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	chatCursor, err := s.chats.Find(ctx, bson.M{"chat_id": bson.M{"$in": chatIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get chats: %w", err)
	}
	defer chatCursor.Close(ctx)

	var chats []models.Chat
	if err = chatCursor.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("failed to decode chats: %w", err)
	}

	return chats, nil
}

// TouchChat bumps a chat's updated_at, keeping the room list ordered by
// latest activity.
func (s *ChatService) TouchChat(chatID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.chats.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}
	return nil
}
