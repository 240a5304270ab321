package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.App.Name != "WhatsGo" {
		t.Errorf("App.Name = %q", cfg.App.Name)
	}
	if cfg.Database.MongoDB.Database != "whatsgo" {
		t.Errorf("MongoDB.Database = %q", cfg.Database.MongoDB.Database)
	}
	if cfg.Chat.MissedCallInterval != 15*time.Second {
		t.Errorf("MissedCallInterval = %v", cfg.Chat.MissedCallInterval)
	}
	if cfg.AI.MaxTokens != 1024 {
		t.Errorf("AI.MaxTokens = %d", cfg.AI.MaxTokens)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("MISSED_CALL_SWEEP_INTERVAL", "5s")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg := Load()

	if cfg.Server.HTTP.Port != "9999" {
		t.Errorf("HTTP.Port = %q", cfg.Server.HTTP.Port)
	}
	if cfg.Security.RateLimit.Enabled {
		t.Error("rate limit should be disabled")
	}
	if cfg.Chat.MissedCallInterval != 5*time.Second {
		t.Errorf("MissedCallInterval = %v", cfg.Chat.MissedCallInterval)
	}
	if len(cfg.Server.CORS.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.Server.CORS.AllowedOrigins)
	}
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("JWT_EXPIRY_HOUR", "not-a-number")
	t.Setenv("HTTP_READ_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Security.JWT.ExpiryHour != 24 {
		t.Errorf("JWT.ExpiryHour = %d", cfg.Security.JWT.ExpiryHour)
	}
	if cfg.Server.HTTP.ReadTimeout != 30*time.Second {
		t.Errorf("HTTP.ReadTimeout = %v", cfg.Server.HTTP.ReadTimeout)
	}
}
