package ws

import (
	"encoding/json"
	"testing"
	"time"
)

func TestInboundFrameDecoding(t *testing.T) {
	raw := `{"type":"chat_message","content":"hey","message_type":"text","reply_to":"msg-7"}`

	var frame InboundFrame
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Type != EventChatMessage || frame.Content != "hey" || frame.ReplyTo != "msg-7" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestInboundCallFrameDecoding(t *testing.T) {
	raw := `{"type":"video_call","action":"answer","call_id":"call-1"}`

	var frame InboundFrame
	if err := json.Unmarshal([]byte(raw), &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Type != EventVideoCall || frame.Action != CallActionAnswer || frame.CallID != "call-1" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestChatMessageEventShape(t *testing.T) {
	e := NewChatMessageEvent(MessagePayload{
		ID:          "msg-1",
		Sender:      "+1000",
		SenderName:  "alice",
		Content:     "hello",
		MessageType: "text",
		Timestamp:   time.Now().Format(time.RFC3339),
	})

	if e.Exclude != "+1000" {
		t.Fatalf("chat_message must exclude the sender, got %q", e.Exclude)
	}

	var frame map[string]interface{}
	if err := json.Unmarshal(e.Data(), &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame["type"] != EventChatMessage {
		t.Fatalf("unexpected type %v", frame["type"])
	}
	msg, ok := frame["message"].(map[string]interface{})
	if !ok {
		t.Fatal("expected nested message object")
	}
	if msg["sender_name"] != "alice" {
		t.Fatalf("unexpected sender_name %v", msg["sender_name"])
	}
	if _, present := msg["sender_photo"]; present {
		t.Fatal("empty sender_photo should be omitted")
	}
}

func TestReadReceiptEventHasNoExclusion(t *testing.T) {
	e := NewReadReceiptEvent("msg-1", "+1000")
	if e.Exclude != "" {
		t.Fatalf("read receipts go to the whole room, got exclude %q", e.Exclude)
	}
}

func TestCallEventTagFollowsCallType(t *testing.T) {
	voice := NewCallEvent("voice", CallActionIncoming, "call-1", "+1000")
	if voice.Type != EventVoiceCall {
		t.Fatalf("expected voice_call, got %q", voice.Type)
	}
	video := NewCallEvent("video", CallActionEnded, "call-2", "+1000")
	if video.Type != EventVideoCall {
		t.Fatalf("expected video_call, got %q", video.Type)
	}
}

func TestErrorFrameShape(t *testing.T) {
	var frame struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(errorFrame("nope"), &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Type != EventError || frame.Message != "nope" {
		t.Fatalf("unexpected error frame: %+v", frame)
	}
}

func TestAIFrameShape(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var frame struct {
		Type      string `json:"type"`
		Content   string `json:"content"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(aiFrame("hi there", ts), &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Type != EventAIMessage || frame.Content != "hi there" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
	if frame.Timestamp != "2025-06-01T12:00:00Z" {
		t.Fatalf("unexpected timestamp %q", frame.Timestamp)
	}
}
