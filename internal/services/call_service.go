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

// MissedCallTimeout is how long a call may sit unanswered before the sweep
// marks it missed.
const MissedCallTimeout = 45 * time.Second

// CallService persists the call signaling state machine:
// initiated -> ringing -> {answered, missed, declined} -> ended.
// Transitions are guarded by conditional updates so concurrent actions on
// the same call cannot corrupt its state.
type CallService struct {
	db           *mongo.Database
	calls        *mongo.Collection
	participants *mongo.Collection
}

func NewCallService(db *mongo.Database) *CallService {
	return &CallService{
		db:           db,
		calls:        db.Collection("calls"),
		participants: db.Collection("call_participants"),
	}
}

// StartCall creates a call in the initiated state with one participant row
// per chat participant, caller included.
func (s *CallService) StartCall(chatID, caller, callType string, participants []string) (*models.Call, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	call := &models.Call{
		CallID:    uuid.NewString(),
		ChatID:    chatID,
		Caller:    caller,
		CallType:  callType,
		Status:    models.CallInitiated,
		StartedAt: time.Now(),
	}

	if _, err := s.calls.InsertOne(ctx, call); err != nil {
		logger.LogError(err, "Failed to create call", map[string]interface{}{
			"chat_id":   chatID,
			"caller":    caller,
			"call_type": callType,
		})
		return nil, fmt.Errorf("failed to create call: %w", err)
	}

	if len(participants) > 0 {
		rows := make([]interface{}, 0, len(participants))
		for _, phone := range participants {
			rows = append(rows, &models.CallParticipant{
				CallID:      call.CallID,
				PhoneNumber: phone,
			})
		}
		if _, err := s.participants.InsertMany(ctx, rows); err != nil {
			return nil, fmt.Errorf("failed to add call participants: %w", err)
		}
	}

	return call, nil
}

// GetCall looks a call up by its public id.
func (s *CallService) GetCall(callID string) (*models.Call, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var call models.Call
	err := s.calls.FindOne(ctx, bson.M{"call_id": callID}).Decode(&call)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrCallNotFound
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}

	return &call, nil
}

// AnswerCall transitions initiated/ringing to answered and stamps the
// answering user's joined time. Answering a call in any other state returns
// ErrInvalidState without touching data.
func (s *CallService) AnswerCall(callID, phone string) (*models.Call, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	filter := bson.M{
		"call_id": callID,
		"status":  bson.M{"$in": []string{models.CallInitiated, models.CallRinging}},
	}
	update := bson.M{"$set": bson.M{
		"status":      models.CallAnswered,
		"answered_at": now,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var call models.Call
	err := s.calls.FindOneAndUpdate(ctx, filter, update, opts).Decode(&call)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			if _, getErr := s.GetCall(callID); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("failed to answer call: %w", err)
	}

	if _, err := s.participants.UpdateOne(ctx,
		bson.M{"call_id": callID, "phone_number": phone},
		bson.M{"$set": bson.M{"joined_at": now}},
	); err != nil {
		logger.LogError(err, "Failed to stamp call participant", map[string]interface{}{
			"call_id":      callID,
			"phone_number": phone,
		})
	}

	return &call, nil
}

// EndCall transitions any non-terminal state to ended, computes the duration
// from the answer time (0 when never answered) and stamps the user's left
// time.
func (s *CallService) EndCall(callID, phone string) (*models.Call, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now()
	filter := bson.M{
		"call_id": callID,
		"status":  bson.M{"$nin": []string{models.CallEnded, models.CallMissed, models.CallDeclined}},
	}
	update := bson.M{"$set": bson.M{
		"status":   models.CallEnded,
		"ended_at": now,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var ended models.Call
	err := s.calls.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ended)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			if _, getErr := s.GetCall(callID); getErr != nil {
				return nil, getErr
			}
			// Lost the race to another terminal transition.
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("failed to end call: %w", err)
	}

	// Duration comes from the committed document, so an answer landing just
	// before the terminal transition is still counted.
	ended.Duration = models.CallDuration(ended.AnsweredAt, now)
	if _, err := s.calls.UpdateOne(ctx,
		bson.M{"call_id": callID},
		bson.M{"$set": bson.M{"duration": ended.Duration}},
	); err != nil {
		logger.LogError(err, "Failed to record call duration", map[string]interface{}{
			"call_id": callID,
		})
	}

	if _, err := s.participants.UpdateOne(ctx,
		bson.M{"call_id": callID, "phone_number": phone},
		bson.M{"$set": bson.M{"left_at": now}},
	); err != nil {
		logger.LogError(err, "Failed to stamp call participant", map[string]interface{}{
			"call_id":      callID,
			"phone_number": phone,
		})
	}

	return &ended, nil
}

// MarkMissedCalls flips calls still unanswered after MissedCallTimeout to
// missed. Run from the coordinator's periodic sweep; returns how many calls
// were affected.
func (s *CallService) MarkMissedCalls() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-MissedCallTimeout)
	filter := bson.M{
		"status":     bson.M{"$in": []string{models.CallInitiated, models.CallRinging}},
		"started_at": bson.M{"$lt": cutoff},
	}
	update := bson.M{"$set": bson.M{
		"status":   models.CallMissed,
		"ended_at": time.Now(),
	}}

	result, err := s.calls.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark missed calls: %w", err)
	}

	return result.ModifiedCount, nil
}

// CallHistory returns the calls of a chat, most recent first.
func (s *CallService) CallHistory(chatID string, limit int) ([]models.Call, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "started_at", Value: -1}})

	cursor, err := s.calls.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get call history: %w", err)
	}
	defer cursor.Close(ctx)

	var calls []models.Call
	if err = cursor.All(ctx, &calls); err != nil {
		return nil, fmt.Errorf("failed to decode calls: %w", err)
	}

	return calls, nil
}
