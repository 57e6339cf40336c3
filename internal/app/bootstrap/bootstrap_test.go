package bootstrap

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/harborhealth/telecare-ai-platform/internal/config"
	"github.com/harborhealth/telecare-ai-platform/pkg/logging"
)

func TestBuildPoolRequiresDatabaseURL(t *testing.T) {
	if _, err := BuildPool(context.Background(), &appconfig.Config{}, nil); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
	if _, err := BuildPool(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, nil, false); client != nil {
		t.Fatal("expected nil client when REDIS_ADDR is empty")
	}
	if client := BuildRedisClient(context.Background(), nil, nil, false); client != nil {
		t.Fatal("expected nil client for nil config")
	}
}

func TestBuildRedisClientWithoutVerify(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "localhost:6379"}
	client := BuildRedisClient(context.Background(), cfg, logging.New("error"), false)
	if client == nil {
		t.Fatal("expected client when addr is set and verification is skipped")
	}
	_ = client.Close()
}

func TestBuildSchedulingCoreRequiresPool(t *testing.T) {
	if _, err := BuildSchedulingCore(nil, nil, &appconfig.Config{}, nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestBuildBookingOrchestratorRequiresCore(t *testing.T) {
	if _, err := BuildBookingOrchestrator(aws.Config{}, nil, nil, nil, &appconfig.Config{}, nil); err == nil {
		t.Fatal("expected error for nil scheduling core")
	}
}
