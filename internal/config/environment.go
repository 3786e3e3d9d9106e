package config

import (
	"strings"

	"golang.org/x/exp/slog"
)

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// UsesMemoryStorage reports whether repositories live in process memory
func (c *Config) UsesMemoryStorage() bool {
	return c.Storage.Driver == "memory"
}

// WebhookURL returns the callback URL given to providers for a gateway
func (c *Config) WebhookURL(gateway string) string {
	return strings.TrimRight(c.Server.PublicBaseURL, "/") + "/api/v1/webhooks/payments/" + gateway
}
