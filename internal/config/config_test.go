package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BEDROCK_MODEL_ID", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.BedrockModelID != "" {
		t.Fatalf("expected default bedrock model empty, got %s", cfg.BedrockModelID)
	}
	if cfg.DefaultLookaheadDays != 30 || cfg.MaxLookaheadDays != 90 {
		t.Fatalf("expected default lookahead bounds 30/90, got %d/%d", cfg.DefaultLookaheadDays, cfg.MaxLookaheadDays)
	}
	if cfg.SlotCacheTTL != 30*time.Second {
		t.Fatalf("expected default slot cache TTL, got %s", cfg.SlotCacheTTL)
	}
	if cfg.IntentTimeout != 15*time.Second {
		t.Fatalf("expected default intent timeout, got %s", cfg.IntentTimeout)
	}
	if cfg.SMSProvider != "auto" {
		t.Fatalf("expected default sms provider auto, got %s", cfg.SMSProvider)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("WORKER_COUNT", "6")
	t.Setenv("INTENT_TIMEOUT", "5s")
	t.Setenv("SLOT_CACHE_TTL", "90s")
	t.Setenv("WEBHOOK_RATE_LIMIT", "2.5")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if !cfg.UseMemoryQueue {
		t.Fatal("expected memory queue override")
	}
	if cfg.WorkerCount != 6 {
		t.Fatalf("expected worker count override, got %d", cfg.WorkerCount)
	}
	if cfg.IntentTimeout != 5*time.Second {
		t.Fatalf("expected intent timeout override, got %s", cfg.IntentTimeout)
	}
	if cfg.SlotCacheTTL != 90*time.Second {
		t.Fatalf("expected slot cache TTL override, got %s", cfg.SlotCacheTTL)
	}
	if cfg.WebhookRateLimit != 2.5 {
		t.Fatalf("expected webhook rate override, got %f", cfg.WebhookRateLimit)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("SLOT_CACHE_TTL", "soon")
	cfg := Load()
	if cfg.WorkerCount != 2 {
		t.Fatalf("expected default worker count for malformed value, got %d", cfg.WorkerCount)
	}
	if cfg.SlotCacheTTL != 30*time.Second {
		t.Fatalf("expected default TTL for malformed value, got %s", cfg.SlotCacheTTL)
	}
}
