// Package config loads dojotimer settings from ~/.dojotimer/config.yaml,
// a .env file and DOJOTIMER_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/dojotimer/internal/audio"
	"github.com/fentz26/dojotimer/internal/models"
	"github.com/fentz26/dojotimer/internal/settings"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	dirName  = ".dojotimer"
	fileName = "config.yaml"
)

// Environment overrides.
const (
	EnvDB     = "DOJOTIMER_DB"
	EnvLog    = "DOJOTIMER_LOG"
	EnvPlayer = "DOJOTIMER_PLAYER"
	EnvSounds = "DOJOTIMER_SOUNDS"
)

// Config holds dojotimer configuration.
type Config struct {
	// DBPath is the SQLite file holding the settings cache and phase journal.
	DBPath string `yaml:"db_path"`
	// LogFile receives logs while the TUI owns the terminal.
	LogFile string `yaml:"log_file"`
	// FrameInterval is the countdown refresh cadence.
	FrameInterval time.Duration `yaml:"frame_interval"`
	// TransitionDelay holds 00:00 between phases so the expiry cue is heard.
	TransitionDelay time.Duration `yaml:"transition_delay"`
	// Presets are the round-minute shortcuts.
	Presets []int `yaml:"presets"`
	// Defaults apply when no settings have been saved yet.
	Defaults Defaults     `yaml:"defaults"`
	Audio    audio.Config `yaml:"audio"`
}

// Defaults is the initial round and rest configuration.
type Defaults struct {
	RoundMinutes int     `yaml:"round_minutes"`
	RoundSeconds int     `yaml:"round_seconds"`
	RestMinutes  float64 `yaml:"rest_minutes"`
}

// Settings converts d to timer settings.
func (d Defaults) Settings() models.TimerSettings {
	return models.TimerSettings{
		RoundMinutes: d.RoundMinutes,
		RoundSeconds: d.RoundSeconds,
		RestMinutes:  d.RestMinutes,
	}
}

// Dir returns ~/.dojotimer, or .dojotimer when there is no home directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// Path returns the default config file, ~/.dojotimer/config.yaml.
func Path() string {
	return filepath.Join(Dir(), fileName)
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	dir := Dir()
	d := settings.DefaultSettings()
	return &Config{
		DBPath:          filepath.Join(dir, "dojotimer.db"),
		LogFile:         filepath.Join(dir, "dojotimer.log"),
		FrameInterval:   16 * time.Millisecond,
		TransitionDelay: time.Second,
		Presets:         settings.DefaultPresets(),
		Defaults: Defaults{
			RoundMinutes: d.RoundMinutes,
			RoundSeconds: d.RoundSeconds,
			RestMinutes:  d.RestMinutes,
		},
	}
}

// Load reads the config at path, or ~/.dojotimer/config.yaml when path is
// empty, then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := LoadEnvFile(); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads variables from the given .env files, or ./.env. A
// missing file is not an error; variables already set are kept.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from DOJOTIMER_* variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvLog); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv(EnvPlayer); v != "" {
		c.Audio.Player = v
	}
	if v := os.Getenv(EnvSounds); v != "" {
		c.Audio.Dir = v
	}
}

// SaveConfig saves configuration to a YAML file, creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.FrameInterval < time.Millisecond || c.FrameInterval > time.Second {
		return fmt.Errorf("frame_interval must be between 1ms and 1s, got %s", c.FrameInterval)
	}
	if c.TransitionDelay < 0 || c.TransitionDelay > 10*time.Second {
		return fmt.Errorf("transition_delay must be between 0 and 10s, got %s", c.TransitionDelay)
	}
	if len(c.Presets) == 0 {
		return fmt.Errorf("at least one preset is required")
	}
	for _, p := range c.Presets {
		if p < 1 || p > settings.MaxRoundMinutes {
			return fmt.Errorf("preset %d out of range 1-%d", p, settings.MaxRoundMinutes)
		}
	}

	d := c.Defaults
	if d.RoundMinutes < 0 || d.RoundMinutes > settings.MaxRoundMinutes {
		return fmt.Errorf("defaults.round_minutes must be 0-%d", settings.MaxRoundMinutes)
	}
	if d.RoundSeconds < 0 || d.RoundSeconds > settings.MaxRoundSeconds {
		return fmt.Errorf("defaults.round_seconds must be 0-%d", settings.MaxRoundSeconds)
	}
	if d.RestMinutes < 0 || d.RestMinutes > settings.MaxRestMinutes {
		return fmt.Errorf("defaults.rest_minutes must be 0-%g", settings.MaxRestMinutes)
	}

	if c.Audio.Player != "" && !audio.IsAllowed(c.Audio.Player) {
		return fmt.Errorf("audio.player %q is not supported, must be one of: paplay, afplay, aplay, ffplay, mpg123", c.Audio.Player)
	}
	return nil
}
