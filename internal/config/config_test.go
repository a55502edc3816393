package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.FrameInterval != 16*time.Millisecond {
		t.Errorf("Expected 16ms frame interval, got %s", cfg.FrameInterval)
	}
	if cfg.Defaults.RoundMinutes != 5 || cfg.Defaults.RestMinutes != 1 {
		t.Errorf("Expected 5:00/1 defaults, got %+v", cfg.Defaults)
	}
	if len(cfg.Presets) != 6 {
		t.Errorf("Expected 6 presets, got %v", cfg.Presets)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
db_path: /tmp/dojo.db
frame_interval: 50ms
transition_delay: 1500ms
presets: [3, 5]
defaults:
  round_minutes: 0
  round_seconds: 15
  rest_minutes: 0.5
audio:
  player: aplay
  dir: /opt/sounds
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.DBPath != "/tmp/dojo.db" {
		t.Errorf("Expected db path from file, got %s", cfg.DBPath)
	}
	if cfg.FrameInterval != 50*time.Millisecond || cfg.TransitionDelay != 1500*time.Millisecond {
		t.Errorf("Unexpected intervals: %s %s", cfg.FrameInterval, cfg.TransitionDelay)
	}
	if got := cfg.Defaults.Settings(); got.RoundSeconds != 15 || got.RestMinutes != 0.5 {
		t.Errorf("Unexpected defaults: %+v", got)
	}
	if cfg.Audio.Player != "aplay" || cfg.Audio.Dir != "/opt/sounds" {
		t.Errorf("Unexpected audio config: %+v", cfg.Audio)
	}
	if cfg.LogFile == "" {
		t.Error("Expected unspecified log_file to keep its default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"no db", func(c *Config) { c.DBPath = "" }, "db_path"},
		{"frame too slow", func(c *Config) { c.FrameInterval = 2 * time.Second }, "frame_interval"},
		{"frame zero", func(c *Config) { c.FrameInterval = 0 }, "frame_interval"},
		{"negative delay", func(c *Config) { c.TransitionDelay = -time.Second }, "transition_delay"},
		{"no presets", func(c *Config) { c.Presets = nil }, "preset"},
		{"bad preset", func(c *Config) { c.Presets = []int{0} }, "preset 0"},
		{"bad seconds", func(c *Config) { c.Defaults.RoundSeconds = 60 }, "round_seconds"},
		{"bad rest", func(c *Config) { c.Defaults.RestMinutes = -1 }, "rest_minutes"},
		{"bad player", func(c *Config) { c.Audio.Player = "vlc" }, "audio.player"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("frame_interval: 5s\n"), 0o600)

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for invalid frame_interval")
	}

	os.WriteFile(path, []byte("presets: [oops\n"), 0o600)
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed yaml")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDB, "/var/lib/dojo.db")
	t.Setenv(EnvLog, "")
	t.Setenv(EnvPlayer, "mpg123")
	t.Setenv(EnvSounds, "/srv/sounds")

	cfg := DefaultConfig()
	logFile := cfg.LogFile
	cfg.ApplyEnv()

	if cfg.DBPath != "/var/lib/dojo.db" {
		t.Errorf("Expected db from env, got %s", cfg.DBPath)
	}
	if cfg.LogFile != logFile {
		t.Errorf("Expected empty env var to be ignored, got %s", cfg.LogFile)
	}
	if cfg.Audio.Player != "mpg123" || cfg.Audio.Dir != "/srv/sounds" {
		t.Errorf("Unexpected audio config: %+v", cfg.Audio)
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv(EnvPlayer, "")
	os.Unsetenv(EnvPlayer)

	path := filepath.Join(t.TempDir(), ".env")
	os.WriteFile(path, []byte(EnvPlayer+"=paplay\n"), 0o600)

	if err := LoadEnvFile(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if got := os.Getenv(EnvPlayer); got != "paplay" {
		t.Errorf("Expected player from .env, got %q", got)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Presets = []int{2, 3}
	cfg.TransitionDelay = 500 * time.Millisecond

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(loaded.Presets) != 2 || loaded.TransitionDelay != 500*time.Millisecond {
		t.Errorf("Expected saved values back, got %v %s", loaded.Presets, loaded.TransitionDelay)
	}

	if err := SaveConfig(path, nil); err == nil {
		t.Error("Expected error saving nil config")
	}
}
