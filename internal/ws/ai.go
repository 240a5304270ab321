package ws

import (
	"context"
	"encoding/json"
	"time"

	"whatsgo/pkg/logger"

	"github.com/gorilla/websocket"
)

// AIResponder produces an assistant reply within one stored conversation.
type AIResponder interface {
	Respond(ctx context.Context, conversationID, userText string) (string, error)
}

const aiResponseTimeout = 30 * time.Second

// AIGateway is the per-connection actor for the assistant channel. Unlike
// chat rooms there is no fan-out group: frames flow request/response on a
// single connection, so no hub subscription is needed.
type AIGateway struct {
	conn           *websocket.Conn
	responder      AIResponder
	conversationID string
	phone          string
}

func NewAIGateway(conn *websocket.Conn, responder AIResponder, conversationID, phone string) *AIGateway {
	return &AIGateway{
		conn:           conn,
		responder:      responder,
		conversationID: conversationID,
		phone:          phone,
	}
}

// Run reads user frames and answers each with one assistant frame until
// the connection dies.
func (g *AIGateway) Run() {
	defer g.conn.Close()

	g.conn.SetReadLimit(maxMessageSize)

	logger.LogUserAction(g.phone, "ai_channel_connected", map[string]interface{}{
		"conversation_id": g.conversationID,
	})

	for {
		_, data, err := g.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithFields(map[string]interface{}{
					"user":  g.phone,
					"error": err.Error(),
				}).Error("AI channel read error")
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			g.writeFrame(errorFrame("Invalid message format"))
			return
		}

		if frame.Type != EventAIMessage || frame.Content == "" {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), aiResponseTimeout)
		reply, err := g.responder.Respond(ctx, g.conversationID, frame.Content)
		cancel()
		if err != nil {
			logger.LogError(err, "AI response failed", map[string]interface{}{
				"conversation_id": g.conversationID,
			})
			g.writeFrame(errorFrame("Assistant is unavailable"))
			continue
		}

		g.writeFrame(aiFrame(reply, time.Now()))
	}
}

func (g *AIGateway) writeFrame(data []byte) {
	g.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := g.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		g.conn.Close()
	}
}
