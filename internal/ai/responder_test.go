package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"whatsgo/internal/config"
	"whatsgo/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetLevel(logger.ErrorLevel)
	os.Exit(m.Run())
}

func newTestClient(endpoint string) *Client {
	return NewClient(config.AIConfig{
		Endpoint:       endpoint,
		APIKey:         "test-key",
		Model:          "test-model",
		MaxTokens:      256,
		RequestTimeout: 5 * time.Second,
	})
}

func TestGenerateResponse(t *testing.T) {
	var got completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]string{{"text": "hello back"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	history := []Turn{
		{IsUser: true, Content: "hi"},
		{IsUser: false, Content: "hey, how can I help?"},
	}

	reply, err := client.GenerateResponse(context.Background(), "what's up", history)
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if reply != "hello back" {
		t.Fatalf("unexpected reply %q", reply)
	}

	if got.Model != "test-model" || got.MaxTokens != 256 {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.System == "" {
		t.Fatal("system prompt should be set")
	}
	if len(got.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Role != "user" || got.Messages[1].Role != "assistant" || got.Messages[2].Role != "user" {
		t.Fatalf("unexpected roles: %+v", got.Messages)
	}
	if got.Messages[2].Content != "what's up" {
		t.Fatalf("latest user text should be last, got %q", got.Messages[2].Content)
	}
}

func TestGenerateResponseServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.GenerateResponse(context.Background(), "hi", nil); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestGenerateResponseEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"content": []interface{}{}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.GenerateResponse(context.Background(), "hi", nil); err == nil {
		t.Fatal("expected error on empty content")
	}
}
