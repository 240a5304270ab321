package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"whatsgo/internal/models"
	"whatsgo/internal/services"
	"whatsgo/pkg/logger"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024 * 1024 // 1MB

	// Buffer size for client send channel
	sendBufferSize = 256

	// Maximum chat message content length
	maxContentLength = 4096

	// Inbound frame rate limit per connection
	framesPerSecond = 10
	frameBurst      = 20
)

var newline = []byte{'\n'}

// Gateway is the per-connection actor for a chat room: it owns one
// WebSocket, decodes inbound frames, forwards them to the Coordinator, and
// drains a bounded send buffer toward the peer. The send channel is never
// closed; closeOnce-guarded done signalling keeps Deliver safe against
// concurrent teardown.
type Gateway struct {
	conn        *websocket.Conn
	coordinator *Coordinator

	chatID string
	phone  string

	send chan []byte
	done chan struct{}

	sub     *Subscription
	limiter *rate.Limiter

	connectedAt time.Time
	closeOnce   sync.Once
}

func NewGateway(conn *websocket.Conn, coordinator *Coordinator, chatID, phone string) *Gateway {
	return &Gateway{
		conn:        conn,
		coordinator: coordinator,
		chatID:      chatID,
		phone:       phone,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		limiter:     rate.NewLimiter(rate.Limit(framesPerSecond), frameBurst),
		connectedAt: time.Now(),
	}
}

// User reports which user this connection belongs to.
func (g *Gateway) User() string {
	return g.phone
}

// Deliver queues an outbound frame. A full buffer or a closed connection
// reports failure; the hub reacts by dropping the subscriber.
func (g *Gateway) Deliver(data []byte) bool {
	select {
	case <-g.done:
		return false
	default:
	}

	select {
	case g.send <- data:
		return true
	default:
		return false
	}
}

// Drop tears the connection down. Called by the hub while it holds its own
// locks, so the teardown runs on a fresh goroutine.
func (g *Gateway) Drop() {
	go g.close()
}

// Run joins the room and drives both pumps until the connection dies.
// Blocks until the read side returns.
func (g *Gateway) Run() error {
	sub, err := g.coordinator.Join(g.chatID, g.phone, g)
	if err != nil {
		return err
	}
	g.sub = sub

	go g.writePump()
	g.readPump()
	return nil
}

func (g *Gateway) close() {
	g.closeOnce.Do(func() {
		close(g.done)
		g.conn.Close()
		g.coordinator.Leave(g.sub)

		logger.LogUserAction(g.phone, "websocket_disconnected", map[string]interface{}{
			"chat_id":          g.chatID,
			"duration_seconds": time.Since(g.connectedAt).Seconds(),
		})
	})
}

// readPump pumps frames from the WebSocket connection to the coordinator.
func (g *Gateway) readPump() {
	defer g.close()

	g.conn.SetReadLimit(maxMessageSize)
	g.conn.SetReadDeadline(time.Now().Add(pongWait))
	g.conn.SetPongHandler(func(string) error {
		g.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	logger.LogUserAction(g.phone, "websocket_connected", map[string]interface{}{
		"chat_id": g.chatID,
	})

	for {
		_, data, err := g.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithFields(map[string]interface{}{
					"user":  g.phone,
					"error": err.Error(),
				}).Error("WebSocket read error")
			}
			return
		}

		if !g.limiter.Allow() {
			g.sendError("Rate limit exceeded")
			continue
		}

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// A peer speaking garbage is not worth keeping around.
			g.sendError("Invalid message format")
			return
		}

		g.handleFrame(&frame)
	}
}

// writePump pumps queued frames to the WebSocket connection and keeps the
// connection alive with pings.
func (g *Gateway) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		g.close()
	}()

	for {
		select {
		case <-g.done:
			g.conn.SetWriteDeadline(time.Now().Add(writeWait))
			g.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data := <-g.send:
			g.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := g.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			// Add queued messages to the current frame
			n := len(g.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-g.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			g.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := g.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame dispatches one inbound frame. Unknown types are ignored so
// newer clients can speak to older servers.
func (g *Gateway) handleFrame(frame *InboundFrame) {
	switch frame.Type {
	case EventChatMessage:
		g.handleChatMessage(frame)
	case EventTyping:
		g.handleTyping(frame)
	case EventReadReceipt:
		g.handleReadReceipt(frame)
	case EventVoiceCall, EventVideoCall:
		g.handleCall(frame)
	default:
	}
}

func (g *Gateway) handleChatMessage(frame *InboundFrame) {
	if frame.Content == "" || len(frame.Content) > maxContentLength {
		g.sendError("Invalid message content")
		return
	}

	messageType := frame.MessageType
	if messageType == "" {
		messageType = "text"
	}

	if _, err := g.coordinator.PostMessage(g.chatID, g.phone, frame.Content, messageType, frame.ReplyTo); err != nil {
		g.reportError(err, "Failed to send message")
	}
}

func (g *Gateway) handleTyping(frame *InboundFrame) {
	if err := g.coordinator.SetTyping(g.chatID, g.phone, frame.IsTyping); err != nil {
		logger.LogError(err, "Failed to update typing status", map[string]interface{}{
			"chat_id": g.chatID,
			"user":    g.phone,
		})
	}
}

func (g *Gateway) handleReadReceipt(frame *InboundFrame) {
	if frame.MessageID == "" {
		g.sendError("Missing message_id")
		return
	}
	if err := g.coordinator.MarkRead(g.chatID, g.phone, frame.MessageID); err != nil {
		g.reportError(err, "Failed to mark message read")
	}
}

func (g *Gateway) handleCall(frame *InboundFrame) {
	callType := models.CallTypeVoice
	if frame.Type == EventVideoCall {
		callType = models.CallTypeVideo
	}

	switch frame.Action {
	case CallActionStart:
		if _, err := g.coordinator.StartCall(g.chatID, g.phone, callType); err != nil {
			g.reportError(err, "Failed to start call")
		}
	case CallActionAnswer:
		if _, err := g.coordinator.AnswerCall(frame.CallID, g.phone); err != nil {
			g.reportError(err, "Failed to answer call")
		}
	case CallActionEnd:
		if _, err := g.coordinator.EndCall(frame.CallID, g.phone); err != nil {
			g.reportError(err, "Failed to end call")
		}
	default:
		g.sendError("Unknown call action")
	}
}

// reportError translates domain errors into client-facing error frames.
// Infrastructure failures are logged but surfaced generically.
func (g *Gateway) reportError(err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrPermissionDenied):
		g.sendError("Permission denied")
	case errors.Is(err, services.ErrInvalidReference):
		g.sendError("Referenced message not found in this chat")
	case errors.Is(err, services.ErrInvalidState):
		g.sendError("Call is no longer active")
	case errors.Is(err, services.ErrMessageNotFound):
		g.sendError("Message not found")
	case errors.Is(err, services.ErrCallNotFound):
		g.sendError("Call not found")
	default:
		logger.LogError(err, fallback, map[string]interface{}{
			"chat_id": g.chatID,
			"user":    g.phone,
		})
		g.sendError(fallback)
	}
}

func (g *Gateway) sendError(message string) {
	g.Deliver(errorFrame(message))
}
