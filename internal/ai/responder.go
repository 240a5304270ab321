package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"whatsgo/internal/config"
	"whatsgo/pkg/logger"
)

// FallbackReply is returned when the completion service is unreachable or
// rejects the request, so the conversation never dead-ends.
const FallbackReply = "Sorry, I'm having trouble responding right now. Please try again later."

const systemPrompt = "You are a helpful AI assistant integrated into a messaging app. " +
	"You're friendly, conversational, and help users with anything they need - from " +
	"answering questions to having casual conversations. Keep responses concise and " +
	"natural, like texting a friend."

// Turn is one prior exchange handed to the completion service as context.
type Turn struct {
	IsUser  bool
	Content string
}

// Responder generates assistant replies. Implementations may be slow or
// failing; callers must not let that stall unrelated work.
type Responder interface {
	GenerateResponse(ctx context.Context, userText string, history []Turn) (string, error)
}

// Client talks to an external text-completion HTTP API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
	maxTokens  int
}

func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
	}
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string              `json:"model"`
	MaxTokens int                 `json:"max_tokens"`
	System    string              `json:"system"`
	Messages  []completionMessage `json:"messages"`
}

type completionResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateResponse sends the conversation to the completion endpoint and
// returns the assistant's text.
func (c *Client) GenerateResponse(ctx context.Context, userText string, history []Turn) (string, error) {
	messages := make([]completionMessage, 0, len(history)+1)
	for _, turn := range history {
		role := "assistant"
		if turn.IsUser {
			role = "user"
		}
		messages = append(messages, completionMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, completionMessage{Role: "user", Content: userText})

	body, err := json.Marshal(completionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    systemPrompt,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	logger.LogPerformance("ai_completion", time.Since(start), map[string]interface{}{
		"status_code": resp.StatusCode,
	})

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion service returned %d: %s", resp.StatusCode, payload)
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(decoded.Content) == 0 {
		return "", fmt.Errorf("completion response had no content")
	}

	return decoded.Content[0].Text, nil
}
