package ws

import (
	"sync"

	"whatsgo/pkg/logger"
)

// Subscriber is one live connection's view from the fan-out layer.
type Subscriber interface {
	// User identifies the connection's owner for self-exclusion.
	User() string
	// Deliver enqueues a frame without blocking. False means the
	// subscriber's outbound queue is full or the connection is gone.
	Deliver(data []byte) bool
	// Drop tears the connection down after a failed delivery. Must not
	// call back into the Broadcaster synchronously.
	Drop()
}

// Broadcaster is the room fan-out contract. The in-process Hub below
// satisfies it; a networked pub/sub layer could replace it for
// multi-process deployments.
type Broadcaster interface {
	Subscribe(roomID string, s Subscriber)
	Unsubscribe(roomID string, s Subscriber)
	Publish(roomID string, e *Event)
}

// Hub is the in-process Broadcaster: room id -> live subscriber set. A slow
// or broken subscriber never stalls a room; delivery is a non-blocking
// enqueue and a full queue costs the subscriber its connection.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Subscriber]bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Subscriber]bool)}
}

func (h *Hub) Subscribe(roomID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[Subscriber]bool)
	}
	h.rooms[roomID][s] = true
}

func (h *Hub) Unsubscribe(roomID string, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.rooms, roomID)
	}
}

// Publish fans an event out to every subscriber in the room except the
// excluded user's connections. Subscribers that cannot accept the frame are
// detached and dropped.
func (h *Hub) Publish(roomID string, e *Event) {
	h.mu.RLock()
	var dead []Subscriber
	for s := range h.rooms[roomID] {
		if e.Exclude != "" && s.User() == e.Exclude {
			continue
		}
		if !s.Deliver(e.Data()) {
			dead = append(dead, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range dead {
		logger.WithFields(map[string]interface{}{
			"room_id": roomID,
			"user":    s.User(),
			"event":   e.Type,
		}).Warn("Dropping subscriber with full send queue")

		h.Unsubscribe(roomID, s)
		s.Drop()
	}
}

// RoomSize returns how many live subscriptions a room has.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
