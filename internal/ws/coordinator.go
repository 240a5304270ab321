package ws

import (
	"context"
	"sync"
	"time"

	"whatsgo/internal/models"
	"whatsgo/internal/services"
	"whatsgo/pkg/logger"
)

// Store interfaces the Coordinator depends on. The Mongo services satisfy
// them; tests substitute in-memory fakes.

type ChatStore interface {
	GetChat(chatID string) (*models.Chat, error)
	IsParticipant(chatID, phone string) (bool, error)
	Participants(chatID string) ([]models.ChatParticipant, error)
	GroupSettings(chatID string) (*models.Group, error)
	IsGroupAdmin(chatID, phone string) (bool, error)
	TouchChat(chatID string) error
}

type MessageStore interface {
	CreateMessage(chatID, sender, content, messageType, replyTo string, recipients []string) (*models.Message, error)
	GetMessage(messageID string) (*models.Message, error)
	EditMessage(messageID, newContent string) (*models.Message, error)
	DeleteMessage(msg *models.Message, deletedBy string, forEveryone bool) error
}

type DeliveryStore interface {
	MarkDelivered(messageID string, recipients []string) error
	MarkRead(messageID, phone string) error
}

type PresenceStore interface {
	SetOnline(phone string, online bool) error
	SetTyping(chatID, phone string, typing bool) error
}

type CallStore interface {
	StartCall(chatID, caller, callType string, participants []string) (*models.Call, error)
	AnswerCall(callID, phone string) (*models.Call, error)
	EndCall(callID, phone string) (*models.Call, error)
	MarkMissedCalls() (int64, error)
}

type UserStore interface {
	GetUser(phone string) (*models.User, error)
}

// Subscription is one live (user, chat) membership in the fan-out group.
// Leave is safe to call from every disconnect path; the cleanup runs once.
type Subscription struct {
	ChatID string
	Phone  string

	sub  Subscriber
	once sync.Once
}

// Coordinator is the single authority for room-scoped mutation: it owns the
// live-connection roster per chat, guards each room's persist+fan-out
// sequence with a per-room lock, and is the only writer of delivery and
// presence state. Operations on different rooms run in parallel.
type Coordinator struct {
	chats       ChatStore
	messages    MessageStore
	delivery    DeliveryStore
	presence    PresenceStore
	calls       CallStore
	users       UserStore
	broadcaster Broadcaster

	mu        sync.Mutex
	roomLocks map[string]*sync.Mutex
	roster    map[string]map[string]int // chat id -> phone -> live connection count
}

func NewCoordinator(
	chats ChatStore,
	messages MessageStore,
	delivery DeliveryStore,
	presence PresenceStore,
	calls CallStore,
	users UserStore,
	broadcaster Broadcaster,
) *Coordinator {
	return &Coordinator{
		chats:       chats,
		messages:    messages,
		delivery:    delivery,
		presence:    presence,
		calls:       calls,
		users:       users,
		broadcaster: broadcaster,
		roomLocks:   make(map[string]*sync.Mutex),
		roster:      make(map[string]map[string]int),
	}
}

// roomLock returns the mutex serializing one room's mutations, creating it
// on first use.
func (c *Coordinator) roomLock(chatID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.roomLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		c.roomLocks[chatID] = lock
	}
	return lock
}

// Join registers a connection as a member of the chat's fan-out group and
// marks the user online. Rejects unknown chats and uninvited users.
func (c *Coordinator) Join(chatID, phone string, sub Subscriber) (*Subscription, error) {
	if _, err := c.chats.GetChat(chatID); err != nil {
		return nil, err
	}

	member, err := c.chats.IsParticipant(chatID, phone)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, services.ErrNotAParticipant
	}

	lock := c.roomLock(chatID)
	lock.Lock()
	c.broadcaster.Subscribe(chatID, sub)
	c.addToRoster(chatID, phone)
	lock.Unlock()

	if err := c.presence.SetOnline(phone, true); err != nil {
		logger.LogError(err, "Failed to set user online", map[string]interface{}{
			"chat_id": chatID,
			"user":    phone,
		})
	}

	logger.LogChatEvent("user_joined_room", chatID, phone, map[string]interface{}{
		"room_size": c.ConnectedCount(chatID),
	})

	return &Subscription{ChatID: chatID, Phone: phone, sub: sub}, nil
}

// Leave deregisters the subscription, marks the user offline stamping
// last-seen, and clears their typing flag. Runs exactly once no matter how
// many disconnect paths race to call it.
func (c *Coordinator) Leave(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.once.Do(func() {
		lock := c.roomLock(sub.ChatID)
		lock.Lock()
		c.broadcaster.Unsubscribe(sub.ChatID, sub.sub)
		c.removeFromRoster(sub.ChatID, sub.Phone)
		lock.Unlock()

		if err := c.presence.SetOnline(sub.Phone, false); err != nil {
			logger.LogError(err, "Failed to set user offline", map[string]interface{}{
				"chat_id": sub.ChatID,
				"user":    sub.Phone,
			})
		}
		if err := c.presence.SetTyping(sub.ChatID, sub.Phone, false); err != nil {
			logger.LogError(err, "Failed to clear typing flag", map[string]interface{}{
				"chat_id": sub.ChatID,
				"user":    sub.Phone,
			})
		}

		logger.LogChatEvent("user_left_room", sub.ChatID, sub.Phone, nil)
	})
}

// PostMessage validates permissions, persists the message with its delivery
// ledger rows atomically, fans it out to every other live connection in the
// room, then advances the ledger to delivered for recipients who were
// connected at fan-out time. The whole sequence holds the room lock so
// fan-out order matches persist order.
func (c *Coordinator) PostMessage(chatID, sender, content, messageType, replyTo string) (*models.Message, error) {
	lock := c.roomLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	chat, err := c.chats.GetChat(chatID)
	if err != nil {
		return nil, err
	}

	member, err := c.chats.IsParticipant(chatID, sender)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, services.ErrNotAParticipant
	}

	if chat.ChatType == models.ChatTypeGroup {
		group, err := c.chats.GroupSettings(chatID)
		if err != nil {
			return nil, err
		}
		if group != nil && group.OnlyAdminsCanSend {
			admin, err := c.chats.IsGroupAdmin(chatID, sender)
			if err != nil {
				return nil, err
			}
			if !admin {
				return nil, services.ErrPermissionDenied
			}
		}
	}

	if replyTo != "" {
		ref, err := c.messages.GetMessage(replyTo)
		if err != nil || ref.ChatID != chatID {
			return nil, services.ErrInvalidReference
		}
	}

	participants, err := c.chats.Participants(chatID)
	if err != nil {
		return nil, err
	}
	recipients := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.PhoneNumber != sender {
			recipients = append(recipients, p.PhoneNumber)
		}
	}

	msg, err := c.messages.CreateMessage(chatID, sender, content, messageType, replyTo, recipients)
	if err != nil {
		return nil, err
	}

	c.broadcaster.Publish(chatID, NewChatMessageEvent(c.messagePayload(msg)))

	// A recipient with a live connection in the room has received the
	// message; advance their ledger rows.
	connected := c.connectedRecipients(chatID, recipients)
	if len(connected) > 0 {
		if err := c.delivery.MarkDelivered(msg.MessageID, connected); err != nil {
			logger.LogError(err, "Failed to mark delivered", map[string]interface{}{
				"chat_id":    chatID,
				"message_id": msg.MessageID,
			})
		}
	}

	if err := c.chats.TouchChat(chatID); err != nil {
		logger.LogError(err, "Failed to touch chat", map[string]interface{}{
			"chat_id": chatID,
		})
	}

	logger.LogChatEvent("message_sent", chatID, sender, map[string]interface{}{
		"message_id":   msg.MessageID,
		"message_type": msg.MessageType,
		"delivered_to": len(connected),
	})

	return msg, nil
}

// SetTyping upserts the typing flag and fans the indicator out to everyone
// in the room except the typist's own connections.
func (c *Coordinator) SetTyping(chatID, phone string, isTyping bool) error {
	if err := c.presence.SetTyping(chatID, phone, isTyping); err != nil {
		return err
	}

	c.broadcaster.Publish(chatID, NewTypingEvent(phone, isTyping))
	return nil
}

// MarkRead advances the reader's delivery row to read and fans the receipt
// out to the room. Idempotent: re-reading an already-read message changes
// nothing.
func (c *Coordinator) MarkRead(chatID, phone, messageID string) error {
	msg, err := c.messages.GetMessage(messageID)
	if err != nil {
		return err
	}
	if msg.ChatID != chatID {
		return services.ErrInvalidReference
	}

	if err := c.delivery.MarkRead(messageID, phone); err != nil {
		return err
	}

	c.broadcaster.Publish(chatID, NewReadReceiptEvent(messageID, phone))
	return nil
}

// EditMessage lets the original sender replace a message's content and fans
// the edit out so every participant's view converges.
func (c *Coordinator) EditMessage(messageID, editor, newContent string) (*models.Message, error) {
	msg, err := c.messages.GetMessage(messageID)
	if err != nil {
		return nil, err
	}
	if msg.Sender != editor {
		return nil, services.ErrPermissionDenied
	}

	lock := c.roomLock(msg.ChatID)
	lock.Lock()
	defer lock.Unlock()

	edited, err := c.messages.EditMessage(messageID, newContent)
	if err != nil {
		return nil, err
	}

	c.broadcaster.Publish(msg.ChatID, NewMessageEditedEvent(edited))

	logger.LogChatEvent("message_edited", msg.ChatID, editor, map[string]interface{}{
		"message_id": messageID,
	})

	return edited, nil
}

// DeleteMessage records a tombstone for the requester. With forEveryone the
// content is redacted for all participants and the delete is fanned out;
// otherwise only the requester's own view changes and nothing is published.
func (c *Coordinator) DeleteMessage(messageID, requester string, forEveryone bool) error {
	msg, err := c.messages.GetMessage(messageID)
	if err != nil {
		return err
	}
	if msg.Sender != requester {
		return services.ErrPermissionDenied
	}

	lock := c.roomLock(msg.ChatID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.messages.DeleteMessage(msg, requester, forEveryone); err != nil {
		return err
	}

	if forEveryone {
		c.broadcaster.Publish(msg.ChatID, NewMessageDeletedEvent(messageID, requester))
	}

	logger.LogChatEvent("message_deleted", msg.ChatID, requester, map[string]interface{}{
		"message_id":   messageID,
		"for_everyone": forEveryone,
	})

	return nil
}

// StartCall creates a call with a participant row for every chat
// participant and announces it to the room.
func (c *Coordinator) StartCall(chatID, caller, callType string) (*models.Call, error) {
	lock := c.roomLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := c.chats.GetChat(chatID); err != nil {
		return nil, err
	}
	member, err := c.chats.IsParticipant(chatID, caller)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, services.ErrNotAParticipant
	}

	participants, err := c.chats.Participants(chatID)
	if err != nil {
		return nil, err
	}
	phones := make([]string, 0, len(participants))
	for _, p := range participants {
		phones = append(phones, p.PhoneNumber)
	}

	call, err := c.calls.StartCall(chatID, caller, callType, phones)
	if err != nil {
		return nil, err
	}

	c.broadcaster.Publish(chatID, NewCallEvent(call.CallType, CallActionIncoming, call.CallID, caller))

	logger.LogCallEvent("call_started", call.CallID, chatID, caller, map[string]interface{}{
		"call_type": callType,
	})

	return call, nil
}

// AnswerCall transitions the call to answered and announces it. Illegal
// transitions surface ErrInvalidState to the caller without fan-out.
func (c *Coordinator) AnswerCall(callID, phone string) (*models.Call, error) {
	call, err := c.calls.AnswerCall(callID, phone)
	if err != nil {
		return nil, err
	}

	c.broadcaster.Publish(call.ChatID, NewCallEvent(call.CallType, CallActionAnswered, call.CallID, call.Caller))

	logger.LogCallEvent("call_answered", call.CallID, call.ChatID, phone, nil)
	return call, nil
}

// EndCall transitions any non-terminal call to ended and announces it. The
// recorded duration is whole seconds from answer to end, 0 if never
// answered.
func (c *Coordinator) EndCall(callID, phone string) (*models.Call, error) {
	call, err := c.calls.EndCall(callID, phone)
	if err != nil {
		return nil, err
	}

	c.broadcaster.Publish(call.ChatID, NewCallEvent(call.CallType, CallActionEnded, call.CallID, call.Caller))

	logger.LogCallEvent("call_ended", call.CallID, call.ChatID, phone, map[string]interface{}{
		"duration": call.Duration,
	})
	return call, nil
}

// RunMissedCallSweep periodically flips calls left unanswered past the
// timeout to missed, until the context is cancelled.
func (c *Coordinator) RunMissedCallSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.calls.MarkMissedCalls()
			if err != nil {
				logger.WithError(err).Error("Missed-call sweep failed")
				continue
			}
			if n > 0 {
				logger.WithField("count", n).Info("Marked unanswered calls as missed")
			}
		}
	}
}

// ConnectedCount returns how many live connections a chat currently has.
func (c *Coordinator) ConnectedCount(chatID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, n := range c.roster[chatID] {
		total += n
	}
	return total
}

// messagePayload resolves the sender's display identity for fan-out,
// degrading to the bare phone number if the lookup fails.
func (c *Coordinator) messagePayload(msg *models.Message) MessagePayload {
	payload := MessagePayload{
		ID:          msg.MessageID,
		Sender:      msg.Sender,
		SenderName:  msg.Sender,
		Content:     msg.Content,
		MessageType: msg.MessageType,
		Timestamp:   msg.CreatedAt.Format(time.RFC3339),
		IsEdited:    msg.IsEdited,
		ReplyTo:     msg.ReplyTo,
	}

	if user, err := c.users.GetUser(msg.Sender); err == nil {
		payload.SenderName = user.Username
		payload.SenderPhoto = user.ProfilePicture
	}

	return payload
}

func (c *Coordinator) addToRoster(chatID, phone string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.roster[chatID] == nil {
		c.roster[chatID] = make(map[string]int)
	}
	c.roster[chatID][phone]++
}

func (c *Coordinator) removeFromRoster(chatID, phone string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	users, ok := c.roster[chatID]
	if !ok {
		return
	}
	users[phone]--
	if users[phone] <= 0 {
		delete(users, phone)
	}
	if len(users) == 0 {
		delete(c.roster, chatID)
	}
}

// connectedRecipients filters the recipient list down to users with at
// least one live connection in the room.
func (c *Coordinator) connectedRecipients(chatID string, recipients []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	users := c.roster[chatID]
	if len(users) == 0 {
		return nil
	}

	connected := make([]string, 0, len(recipients))
	for _, phone := range recipients {
		if users[phone] > 0 {
			connected = append(connected, phone)
		}
	}
	return connected
}
