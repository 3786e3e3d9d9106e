package config

import (
	"testing"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/pricing"
	"golang.org/x/exp/slog"
)

func validConfig() *Config {
	return &Config{
		Storage:     StorageConfig{Driver: "memory"},
		Reservation: ReservationConfig{TTL: 30 * time.Minute},
		Gateways:    GatewaysConfig{Timeout: time.Second},
		Lock:        LockConfig{Wait: time.Second},
		JWT:         JWTConfig{Secret: "s"},
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("RESERVATION_TTL", "5m")
	t.Setenv("SERVER_PORT", "8081")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.JWT.Secret != "test-secret" || cfg.Server.Port != "8081" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Reservation.TTL != 5*time.Minute {
		t.Fatalf("expected 5m TTL, got %v", cfg.Reservation.TTL)
	}
	if cfg.Gateways.Timeout != 15*time.Second {
		t.Fatalf("expected default gateway timeout, got %v", cfg.Gateways.Timeout)
	}
	if !cfg.UsesMemoryStorage() {
		t.Fatalf("expected memory storage")
	}
	if cfg.Lock.Wait != 3*time.Second {
		t.Fatalf("expected default lock wait, got %v", cfg.Lock.Wait)
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	bad := validConfig()
	bad.Storage.Driver = "postgres"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}

	noSecret := validConfig()
	noSecret.JWT.Secret = ""
	if err := noSecret.Validate(); err == nil {
		t.Fatalf("expected missing JWT secret to fail")
	}

	gap := validConfig()
	gap.Pricing.Tiers = []pricing.Tier{
		{MinNumbers: 1, MaxNumbers: 100, FeeCents: 100},
		{MinNumbers: 200, MaxNumbers: 300, FeeCents: 200},
	}
	if err := gap.Validate(); err == nil {
		t.Fatalf("expected tier gap to fail")
	}
}

func TestSlogLevelAndWebhookURL(t *testing.T) {
	cfg := validConfig()
	cfg.LogLevel = "DEBUG"
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level")
	}
	cfg.LogLevel = "nonsense"
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Fatalf("expected info fallback")
	}

	cfg.Server.PublicBaseURL = "https://api.example.com/"
	if got := cfg.WebhookURL("syncpayments"); got != "https://api.example.com/api/v1/webhooks/payments/syncpayments" {
		t.Fatalf("unexpected webhook url %s", got)
	}
}
