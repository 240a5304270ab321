package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"whatsgo/internal/models"
	"whatsgo/internal/services"
)

// memStore is an in-memory stand-in for the Mongo-backed services,
// satisfying every store interface the Coordinator needs.
type memStore struct {
	mu sync.Mutex

	chats        map[string]*models.Chat
	participants map[string][]string
	groups       map[string]*models.Group
	admins       map[string]map[string]bool
	users        map[string]*models.User

	nextID   int
	messages map[string]*models.Message
	statuses map[string]map[string]string // message id -> phone -> status

	calls  map[string]*models.Call
	typing map[string]map[string]bool
	online map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		chats:        make(map[string]*models.Chat),
		participants: make(map[string][]string),
		groups:       make(map[string]*models.Group),
		admins:       make(map[string]map[string]bool),
		users:        make(map[string]*models.User),
		messages:     make(map[string]*models.Message),
		statuses:     make(map[string]map[string]string),
		calls:        make(map[string]*models.Call),
		typing:       make(map[string]map[string]bool),
		online:       make(map[string]bool),
	}
}

func (m *memStore) addChat(chatID, chatType string, phones ...string) {
	m.chats[chatID] = &models.Chat{ChatID: chatID, ChatType: chatType}
	m.participants[chatID] = phones
}

func (m *memStore) GetChat(chatID string) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[chatID]
	if !ok {
		return nil, services.ErrChatNotFound
	}
	return chat, nil
}

func (m *memStore) IsParticipant(chatID, phone string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants[chatID] {
		if p == phone {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Participants(chatID string) ([]models.ChatParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ChatParticipant, 0, len(m.participants[chatID]))
	for _, p := range m.participants[chatID] {
		out = append(out, models.ChatParticipant{ChatID: chatID, PhoneNumber: p})
	}
	return out, nil
}

func (m *memStore) GroupSettings(chatID string) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.groups[chatID], nil
}

func (m *memStore) IsGroupAdmin(chatID, phone string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.admins[chatID][phone], nil
}

func (m *memStore) TouchChat(chatID string) error { return nil }

func (m *memStore) CreateMessage(chatID, sender, content, messageType, replyTo string, recipients []string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	msg := &models.Message{
		MessageID:   fmt.Sprintf("msg-%d", m.nextID),
		ChatID:      chatID,
		Sender:      sender,
		MessageType: messageType,
		Content:     content,
		ReplyTo:     replyTo,
		CreatedAt:   time.Now(),
	}
	m.messages[msg.MessageID] = msg

	rows := make(map[string]string, len(recipients))
	for _, r := range recipients {
		rows[r] = models.StatusSent
	}
	m.statuses[msg.MessageID] = rows

	return msg, nil
}

func (m *memStore) GetMessage(messageID string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, services.ErrMessageNotFound
	}
	return msg, nil
}

func (m *memStore) EditMessage(messageID, newContent string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, services.ErrMessageNotFound
	}
	now := time.Now()
	msg.Content = newContent
	msg.IsEdited = true
	msg.EditedAt = &now
	return msg, nil
}

func (m *memStore) DeleteMessage(msg *models.Message, deletedBy string, forEveryone bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if forEveryone {
		now := time.Now()
		msg.Content = models.DeletedPlaceholder
		msg.IsDeleted = true
		msg.DeletedAt = &now
	}
	return nil
}

func (m *memStore) MarkDelivered(messageID string, recipients []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recipients {
		if cur, ok := m.statuses[messageID][r]; ok && models.StatusAdvances(cur, models.StatusDelivered) {
			m.statuses[messageID][r] = models.StatusDelivered
		}
	}
	return nil
}

func (m *memStore) MarkRead(messageID, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.statuses[messageID][phone]; ok && models.StatusAdvances(cur, models.StatusRead) {
		m.statuses[messageID][phone] = models.StatusRead
	}
	return nil
}

func (m *memStore) SetOnline(phone string, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[phone] = online
	return nil
}

func (m *memStore) SetTyping(chatID, phone string, typing bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.typing[chatID] == nil {
		m.typing[chatID] = make(map[string]bool)
	}
	m.typing[chatID][phone] = typing
	return nil
}

func (m *memStore) StartCall(chatID, caller, callType string, participants []string) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	call := &models.Call{
		CallID:    fmt.Sprintf("call-%d", m.nextID),
		ChatID:    chatID,
		Caller:    caller,
		CallType:  callType,
		Status:    models.CallInitiated,
		StartedAt: time.Now(),
	}
	m.calls[call.CallID] = call
	return call, nil
}

func (m *memStore) AnswerCall(callID, phone string) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call, ok := m.calls[callID]
	if !ok {
		return nil, services.ErrCallNotFound
	}
	if !models.CanAnswer(call.Status) {
		return nil, services.ErrInvalidState
	}
	now := time.Now()
	call.Status = models.CallAnswered
	call.AnsweredAt = &now
	return call, nil
}

func (m *memStore) EndCall(callID, phone string) (*models.Call, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call, ok := m.calls[callID]
	if !ok {
		return nil, services.ErrCallNotFound
	}
	if models.IsTerminalCallStatus(call.Status) {
		return nil, services.ErrInvalidState
	}
	now := time.Now()
	call.Status = models.CallEnded
	call.EndedAt = &now
	call.Duration = models.CallDuration(call.AnsweredAt, now)
	return call, nil
}

func (m *memStore) MarkMissedCalls() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, call := range m.calls {
		if !models.IsTerminalCallStatus(call.Status) && call.Status != models.CallAnswered {
			call.Status = models.CallMissed
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetUser(phone string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[phone]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	return user, nil
}

func (m *memStore) status(messageID, phone string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses[messageID][phone]
}

func newTestCoordinator(store *memStore) (*Coordinator, *Hub) {
	hub := NewHub()
	return NewCoordinator(store, store, store, store, store, store, hub), hub
}

func TestJoinRejectsUnknownChat(t *testing.T) {
	store := newMemStore()
	coord, _ := newTestCoordinator(store)

	_, err := coord.Join("missing", "+1000", &fakeSubscriber{user: "+1000"})
	if err != services.ErrChatNotFound {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

func TestJoinRejectsNonParticipant(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	coord, _ := newTestCoordinator(store)

	_, err := coord.Join("chat-1", "+9999", &fakeSubscriber{user: "+9999"})
	if err != services.ErrNotAParticipant {
		t.Fatalf("expected ErrNotAParticipant, got %v", err)
	}
}

func TestPostMessageFanOutExcludesSender(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	coord, _ := newTestCoordinator(store)

	sender := &fakeSubscriber{user: "+1000"}
	recipient := &fakeSubscriber{user: "+2000"}
	mustJoin(t, coord, "chat-1", sender)
	mustJoin(t, coord, "chat-1", recipient)

	msg, err := coord.PostMessage("chat-1", "+1000", "hello", models.MessageTypeText, "")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	if sender.frameCount() != 0 {
		t.Fatal("sender must not receive its own message")
	}
	if recipient.frameCount() != 1 {
		t.Fatalf("recipient should receive one frame, got %d", recipient.frameCount())
	}

	var frame struct {
		Type    string         `json:"type"`
		Message MessagePayload `json:"message"`
	}
	if err := json.Unmarshal(recipient.frames[0], &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Type != EventChatMessage {
		t.Fatalf("expected %q frame, got %q", EventChatMessage, frame.Type)
	}
	if frame.Message.ID != msg.MessageID || frame.Message.Content != "hello" {
		t.Fatalf("unexpected payload: %+v", frame.Message)
	}
}

func TestPostMessageDeliveredOnlyForConnected(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypeGroup, "+1000", "+2000", "+3000")
	store.groups["chat-1"] = &models.Group{ChatID: "chat-1"}
	coord, _ := newTestCoordinator(store)

	mustJoin(t, coord, "chat-1", &fakeSubscriber{user: "+1000"})
	mustJoin(t, coord, "chat-1", &fakeSubscriber{user: "+2000"})
	// +3000 is offline

	msg, err := coord.PostMessage("chat-1", "+1000", "hi all", models.MessageTypeText, "")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	if got := store.status(msg.MessageID, "+2000"); got != models.StatusDelivered {
		t.Fatalf("connected recipient should be delivered, got %q", got)
	}
	if got := store.status(msg.MessageID, "+3000"); got != models.StatusSent {
		t.Fatalf("offline recipient should stay sent, got %q", got)
	}
}

func TestPostMessageAdminOnlyGroup(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypeGroup, "+1000", "+2000")
	store.groups["chat-1"] = &models.Group{ChatID: "chat-1", OnlyAdminsCanSend: true}
	store.admins["chat-1"] = map[string]bool{"+1000": true}
	coord, _ := newTestCoordinator(store)

	if _, err := coord.PostMessage("chat-1", "+2000", "hi", models.MessageTypeText, ""); err != services.ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if len(store.messages) != 0 {
		t.Fatal("rejected message must not be persisted")
	}

	if _, err := coord.PostMessage("chat-1", "+1000", "hi", models.MessageTypeText, ""); err != nil {
		t.Fatalf("admin should be able to post: %v", err)
	}
}

func TestPostMessageRejectsCrossChatReply(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	store.addChat("chat-2", models.ChatTypePrivate, "+1000", "+3000")
	coord, _ := newTestCoordinator(store)

	other, err := coord.PostMessage("chat-2", "+1000", "elsewhere", models.MessageTypeText, "")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	if _, err := coord.PostMessage("chat-1", "+1000", "reply", models.MessageTypeText, other.MessageID); err != services.ErrInvalidReference {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if _, err := coord.PostMessage("chat-1", "+1000", "reply", models.MessageTypeText, "ghost"); err != services.ErrInvalidReference {
		t.Fatalf("expected ErrInvalidReference for unknown id, got %v", err)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	coord, _ := newTestCoordinator(store)

	mustJoin(t, coord, "chat-1", &fakeSubscriber{user: "+2000"})
	msg, err := coord.PostMessage("chat-1", "+1000", "hello", models.MessageTypeText, "")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := coord.MarkRead("chat-1", "+2000", msg.MessageID); err != nil {
			t.Fatalf("MarkRead: %v", err)
		}
	}
	if got := store.status(msg.MessageID, "+2000"); got != models.StatusRead {
		t.Fatalf("expected read, got %q", got)
	}
}

func TestMarkReadRejectsMessageFromAnotherChat(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	store.addChat("chat-2", models.ChatTypePrivate, "+1000", "+3000")
	coord, _ := newTestCoordinator(store)

	watcher := &fakeSubscriber{user: "+2000"}
	mustJoin(t, coord, "chat-1", watcher)

	msg, err := coord.PostMessage("chat-2", "+1000", "elsewhere", models.MessageTypeText, "")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	if err := coord.MarkRead("chat-1", "+2000", msg.MessageID); err != services.ErrInvalidReference {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	if watcher.frameCount() != 0 {
		t.Fatalf("receipt for another chat's message must not reach this room, got %d frames",
			watcher.frameCount())
	}
	if got := store.status(msg.MessageID, "+3000"); got == models.StatusRead {
		t.Fatal("mismatched receipt must not advance the ledger")
	}

	if err := coord.MarkRead("chat-1", "+2000", "msg-missing"); err != services.ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestTypingExcludesEveryConnectionOfTypist(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	coord, _ := newTestCoordinator(store)

	phone1 := &fakeSubscriber{user: "+1000"}
	laptop1 := &fakeSubscriber{user: "+1000"}
	other := &fakeSubscriber{user: "+2000"}
	mustJoin(t, coord, "chat-1", phone1)
	mustJoin(t, coord, "chat-1", laptop1)
	mustJoin(t, coord, "chat-1", other)

	if err := coord.SetTyping("chat-1", "+1000", true); err != nil {
		t.Fatalf("SetTyping: %v", err)
	}

	if phone1.frameCount() != 0 || laptop1.frameCount() != 0 {
		t.Fatal("typist's connections must not see their own indicator")
	}
	if other.frameCount() != 1 {
		t.Fatalf("other participant should see the indicator, got %d", other.frameCount())
	}
	if !store.typing["chat-1"]["+1000"] {
		t.Fatal("typing flag should be persisted")
	}
}

func TestLeaveRunsOnce(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	coord, _ := newTestCoordinator(store)

	sub, err := coord.Join("chat-1", "+1000", &fakeSubscriber{user: "+1000"})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if coord.ConnectedCount("chat-1") != 1 {
		t.Fatalf("expected 1 connection, got %d", coord.ConnectedCount("chat-1"))
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coord.Leave(sub)
		}()
	}
	wg.Wait()

	if coord.ConnectedCount("chat-1") != 0 {
		t.Fatalf("expected empty roster, got %d", coord.ConnectedCount("chat-1"))
	}
	if store.online["+1000"] {
		t.Fatal("user should be offline after leaving")
	}
	if store.typing["chat-1"]["+1000"] {
		t.Fatal("typing flag should be cleared on leave")
	}
}

func TestConcurrentPostMessages(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	coord, _ := newTestCoordinator(store)

	recipient := &fakeSubscriber{user: "+2000"}
	mustJoin(t, coord, "chat-1", recipient)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := coord.PostMessage("chat-1", "+1000", fmt.Sprintf("m%d", i), models.MessageTypeText, ""); err != nil {
				t.Errorf("PostMessage: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if recipient.frameCount() != n {
		t.Fatalf("expected %d frames, got %d", n, recipient.frameCount())
	}
	if len(store.messages) != n {
		t.Fatalf("expected %d persisted messages, got %d", n, len(store.messages))
	}
}

func TestEditMessageFanOut(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	coord, _ := newTestCoordinator(store)

	recipient := &fakeSubscriber{user: "+2000"}
	mustJoin(t, coord, "chat-1", recipient)

	msg, err := coord.PostMessage("chat-1", "+1000", "helo", models.MessageTypeText, "")
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	if _, err := coord.EditMessage(msg.MessageID, "+2000", "hacked"); err != services.ErrPermissionDenied {
		t.Fatalf("only the sender may edit, got %v", err)
	}

	edited, err := coord.EditMessage(msg.MessageID, "+1000", "hello")
	if err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
	if !edited.IsEdited || edited.Content != "hello" {
		t.Fatalf("unexpected edited message: %+v", edited)
	}
	if recipient.frameCount() != 2 {
		t.Fatalf("edit should fan out, got %d frames", recipient.frameCount())
	}

	var frame struct {
		Type      string `json:"type"`
		MessageID string `json:"message_id"`
		Content   string `json:"content"`
	}
	if err := json.Unmarshal(recipient.frames[1], &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Type != EventMessageEdited || frame.Content != "hello" {
		t.Fatalf("unexpected edit frame: %+v", frame)
	}
}

func TestDeleteMessageFanOutOnlyForEveryone(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	coord, _ := newTestCoordinator(store)

	recipient := &fakeSubscriber{user: "+2000"}
	mustJoin(t, coord, "chat-1", recipient)

	msg1, _ := coord.PostMessage("chat-1", "+1000", "one", models.MessageTypeText, "")
	msg2, _ := coord.PostMessage("chat-1", "+1000", "two", models.MessageTypeText, "")
	base := recipient.frameCount()

	if err := coord.DeleteMessage(msg1.MessageID, "+1000", false); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if recipient.frameCount() != base {
		t.Fatal("delete-for-me must not fan out")
	}

	if err := coord.DeleteMessage(msg2.MessageID, "+1000", true); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if recipient.frameCount() != base+1 {
		t.Fatal("delete-for-everyone should fan out")
	}

	var frame struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(recipient.frames[base], &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Type != EventMessageDeleted || frame.Content != models.DeletedPlaceholder {
		t.Fatalf("unexpected delete frame: %+v", frame)
	}
}

func TestCallLifecycle(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	coord, _ := newTestCoordinator(store)

	callee := &fakeSubscriber{user: "+2000"}
	mustJoin(t, coord, "chat-1", callee)

	call, err := coord.StartCall("chat-1", "+1000", models.CallTypeVoice)
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if callee.frameCount() != 1 {
		t.Fatalf("callee should see the incoming call, got %d frames", callee.frameCount())
	}

	var frame struct {
		Type   string `json:"type"`
		Action string `json:"action"`
		CallID string `json:"call_id"`
	}
	if err := json.Unmarshal(callee.frames[0], &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.Type != EventVoiceCall || frame.Action != CallActionIncoming || frame.CallID != call.CallID {
		t.Fatalf("unexpected call frame: %+v", frame)
	}

	answered, err := coord.AnswerCall(call.CallID, "+2000")
	if err != nil {
		t.Fatalf("AnswerCall: %v", err)
	}
	if answered.Status != models.CallAnswered {
		t.Fatalf("expected answered, got %q", answered.Status)
	}

	// A second answer is an illegal transition.
	if _, err := coord.AnswerCall(call.CallID, "+2000"); err != services.ErrInvalidState {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	ended, err := coord.EndCall(call.CallID, "+1000")
	if err != nil {
		t.Fatalf("EndCall: %v", err)
	}
	if ended.Status != models.CallEnded || ended.Duration < 0 {
		t.Fatalf("unexpected ended call: %+v", ended)
	}

	if _, err := coord.EndCall(call.CallID, "+1000"); err != services.ErrInvalidState {
		t.Fatalf("ending a terminal call should fail, got %v", err)
	}
}

func TestConcurrentAnswerAndEndKeepDurationConsistent(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	coord, _ := newTestCoordinator(store)

	for i := 0; i < 20; i++ {
		call, err := coord.StartCall("chat-1", "+1000", models.CallTypeVoice)
		if err != nil {
			t.Fatalf("StartCall: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			coord.AnswerCall(call.CallID, "+2000")
		}()
		go func() {
			defer wg.Done()
			coord.EndCall(call.CallID, "+1000")
		}()
		wg.Wait()

		store.mu.Lock()
		final := *store.calls[call.CallID]
		store.mu.Unlock()

		// Whatever order the race resolved in, a recorded duration must
		// derive from the committed answer time, never from a stale read.
		if final.Status == models.CallEnded && final.EndedAt != nil {
			want := models.CallDuration(final.AnsweredAt, *final.EndedAt)
			if final.Duration != want {
				t.Fatalf("round %d: duration %d does not match committed answer time (want %d)",
					i, final.Duration, want)
			}
			if final.AnsweredAt != nil && final.AnsweredAt.After(*final.EndedAt) {
				t.Fatalf("round %d: answer recorded after end", i)
			}
		}
	}
}

func TestUnansweredCallHasZeroDuration(t *testing.T) {
	store := newMemStore()
	store.addChat("chat-1", models.ChatTypePrivate, "+1000", "+2000")
	coord, _ := newTestCoordinator(store)

	call, err := coord.StartCall("chat-1", "+1000", models.CallTypeVideo)
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}

	ended, err := coord.EndCall(call.CallID, "+1000")
	if err != nil {
		t.Fatalf("EndCall: %v", err)
	}
	if ended.Duration != 0 {
		t.Fatalf("unanswered call duration should be 0, got %d", ended.Duration)
	}
}

func mustJoin(t *testing.T, coord *Coordinator, chatID string, sub *fakeSubscriber) *Subscription {
	t.Helper()
	s, err := coord.Join(chatID, sub.user, sub)
	if err != nil {
		t.Fatalf("Join(%s, %s): %v", chatID, sub.user, err)
	}
	return s
}
