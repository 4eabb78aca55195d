package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Room.MinPlayers != 3 || cfg.Room.MaxPlayers != 6 {
		t.Errorf("Expected 3/6 players, got %d/%d", cfg.Room.MinPlayers, cfg.Room.MaxPlayers)
	}
	if cfg.Connection.HeartbeatInterval != 5*time.Second {
		t.Errorf("Expected 5s heartbeat, got %v", cfg.Connection.HeartbeatInterval)
	}
	if cfg.Room.GracePeriod != 2*time.Minute {
		t.Errorf("Expected 2m grace period, got %v", cfg.Room.GracePeriod)
	}
	if cfg.Room.GraceExpiryPolicy != ExpiryContinue {
		t.Errorf("Expected %q expiry policy, got %q", ExpiryContinue, cfg.Room.GraceExpiryPolicy)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate, got %v", err)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  http_address: ":7000"
room:
  min_players: 2
  max_players: 4
  grace_period: 30s
  pause_policy: any
  grace_expiry_policy: end_game
connection:
  heartbeat_interval: 1s
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.HTTPAddress != ":7000" {
		t.Errorf("Expected :7000, got %s", cfg.Server.HTTPAddress)
	}
	if cfg.Room.MinPlayers != 2 || cfg.Room.MaxPlayers != 4 {
		t.Errorf("Expected 2/4 players, got %d/%d", cfg.Room.MinPlayers, cfg.Room.MaxPlayers)
	}
	if cfg.Room.GracePeriod != 30*time.Second {
		t.Errorf("Expected 30s grace period, got %v", cfg.Room.GracePeriod)
	}
	if cfg.Room.PausePolicy != PauseOnAny || cfg.Room.GraceExpiryPolicy != ExpiryEndGame {
		t.Errorf("Unexpected policies %q/%q", cfg.Room.PausePolicy, cfg.Room.GraceExpiryPolicy)
	}
	// Untouched keys keep their defaults.
	if cfg.Connection.MissedHeartbeats != 3 {
		t.Errorf("Expected 3 missed heartbeats, got %d", cfg.Connection.MissedHeartbeats)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig without a file should succeed, got %v", err)
	}
	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("Expected default address, got %s", cfg.Server.HTTPAddress)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("ROOMSYNC_ROOM_MAX_PLAYERS", "5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Room.MaxPlayers != 5 {
		t.Errorf("Expected env override of max players to 5, got %d", cfg.Room.MaxPlayers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero min players", func(c *Config) { c.Room.MinPlayers = 0 }},
		{"max below min", func(c *Config) { c.Room.MaxPlayers = 2 }},
		{"zero grace", func(c *Config) { c.Room.GracePeriod = 0 }},
		{"unknown pause policy", func(c *Config) { c.Room.PausePolicy = "sometimes" }},
		{"unknown expiry policy", func(c *Config) { c.Room.GraceExpiryPolicy = "" }},
		{"unknown reconnect key", func(c *Config) { c.Room.ReconnectKey = "ip" }},
		{"zero heartbeat", func(c *Config) { c.Connection.HeartbeatInterval = 0 }},
		{"zero missed heartbeats", func(c *Config) { c.Connection.MissedHeartbeats = 0 }},
		{"negative chat history", func(c *Config) { c.Chat.HistorySize = -1 }},
		{"bad driver", func(c *Config) { c.Database.Enabled = true; c.Database.Driver = "mysql" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestValidate_SmallRooms(t *testing.T) {
	cfg := Default()
	cfg.Room.MinPlayers = 2
	cfg.Room.MaxPlayers = 2
	if err := cfg.Validate(); err != nil {
		t.Errorf("Two player rooms should be valid, got %v", err)
	}
	if cfg := Default(); cfg.Chat.HistorySize != 50 {
		t.Errorf("Expected a chat history of 50 by default, got %d", cfg.Chat.HistorySize)
	}
}
