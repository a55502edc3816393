// Package settings holds the round and rest durations and mirrors every
// change into a key-value cache.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fentz26/dojotimer/internal/models"
)

// CacheKey is the record the settings are stored under.
const CacheKey = "timerSettings"

const (
	MaxRoundMinutes = 99
	MaxRoundSeconds = 59
	MaxRestMinutes  = 99.0
	// RestStep is the rest stepper increment in minutes.
	RestStep = 0.5
)

const persistTimeout = 2 * time.Second

var (
	// ErrUnknownPreset is returned when a preset is not in the preset list.
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrInvalidInput is returned when duration text cannot be parsed.
	ErrInvalidInput = errors.New("invalid duration")
)

// Cache is the persisted key-value cache the store writes through to.
// GetValue returns nil, nil when the key is absent.
type Cache interface {
	GetValue(ctx context.Context, key string) ([]byte, error)
	PutValue(ctx context.Context, key string, value []byte) error
	DeleteValue(ctx context.Context, key string) error
}

// DefaultSettings returns the 5:00 round / 1 minute rest default.
func DefaultSettings() models.TimerSettings {
	return models.TimerSettings{RoundMinutes: 5, RoundSeconds: 0, RestMinutes: 1}
}

// DefaultPresets returns the round-minute shortcuts.
func DefaultPresets() []int {
	return []int{4, 5, 6, 7, 8, 10}
}

// Options configures Load.
type Options struct {
	// Defaults replace DefaultSettings when set.
	Defaults *models.TimerSettings
	// Presets replace DefaultPresets when non-empty.
	Presets []int
	Logger  *log.Logger
}

// Store is the write-through settings cache.
type Store struct {
	mu       sync.Mutex
	cache    Cache
	current  models.TimerSettings
	defaults models.TimerSettings
	presets  []int
	logger   *log.Logger
}

// Load reads the settings once from cache. A missing or unreadable record
// yields the defaults; Load itself never fails. A nil cache keeps the
// settings in memory only.
func Load(ctx context.Context, cache Cache, opts Options) *Store {
	s := &Store{
		cache:    cache,
		defaults: DefaultSettings(),
		presets:  DefaultPresets(),
		logger:   opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if opts.Defaults != nil {
		s.defaults = Normalize(*opts.Defaults)
	}
	if presets := normalizePresets(opts.Presets); len(presets) > 0 {
		s.presets = presets
	}
	s.current = s.defaults

	if cache == nil {
		return s
	}

	data, err := cache.GetValue(ctx, CacheKey)
	if err != nil {
		s.logger.Printf("settings: read cache: %v, using defaults", err)
		return s
	}
	if data == nil {
		return s
	}

	decoded := s.defaults
	if err := json.Unmarshal(data, &decoded); err != nil {
		s.logger.Printf("settings: corrupt %s record: %v, using defaults", CacheKey, err)
		return s
	}
	s.current = Normalize(decoded)
	return s
}

// Settings returns the current settings.
func (s *Store) Settings() models.TimerSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Defaults returns the settings Reset restores.
func (s *Store) Defaults() models.TimerSettings {
	return s.defaults
}

// RoundDuration returns the current round target.
func (s *Store) RoundDuration() time.Duration {
	return s.Settings().RoundDuration()
}

// RestDuration returns the current rest target.
func (s *Store) RestDuration() time.Duration {
	return s.Settings().RestDuration()
}

// Presets returns a copy of the preset list in ascending order.
func (s *Store) Presets() []int {
	out := make([]int, len(s.presets))
	copy(out, s.presets)
	return out
}

// SetRound sets the round duration, clamping both fields.
func (s *Store) SetRound(minutes, seconds int) (models.TimerSettings, error) {
	return s.update(func(ts *models.TimerSettings) {
		ts.RoundMinutes = minutes
		ts.RoundSeconds = seconds
	})
}

// SetRest sets the rest duration, snapped to the nearest half minute.
func (s *Store) SetRest(minutes float64) (models.TimerSettings, error) {
	return s.update(func(ts *models.TimerSettings) {
		ts.RestMinutes = minutes
	})
}

// StepRoundMinutes adds delta to the round minutes.
func (s *Store) StepRoundMinutes(delta int) (models.TimerSettings, error) {
	return s.update(func(ts *models.TimerSettings) {
		ts.RoundMinutes += delta
	})
}

// StepRoundSeconds adds delta to the round seconds. Seconds stay within
// their field and do not carry into minutes.
func (s *Store) StepRoundSeconds(delta int) (models.TimerSettings, error) {
	return s.update(func(ts *models.TimerSettings) {
		ts.RoundSeconds += delta
	})
}

// StepRest moves the rest duration by steps half minutes.
func (s *Store) StepRest(steps int) (models.TimerSettings, error) {
	return s.update(func(ts *models.TimerSettings) {
		ts.RestMinutes += float64(steps) * RestStep
	})
}

// ApplyPreset sets the round to minutes:00.
func (s *Store) ApplyPreset(minutes int) (models.TimerSettings, error) {
	if !s.IsPreset(minutes) {
		return s.Settings(), fmt.Errorf("%w: %d", ErrUnknownPreset, minutes)
	}
	return s.update(func(ts *models.TimerSettings) {
		ts.RoundMinutes = minutes
		ts.RoundSeconds = 0
	})
}

// IsPreset reports whether minutes is in the preset list.
func (s *Store) IsPreset(minutes int) bool {
	for _, p := range s.presets {
		if p == minutes {
			return true
		}
	}
	return false
}

// Reset drops the cached record and restores the defaults.
func (s *Store) Reset() (models.TimerSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = s.defaults
	if s.cache == nil {
		return s.current, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.cache.DeleteValue(ctx, CacheKey); err != nil {
		return s.current, fmt.Errorf("delete settings: %w", err)
	}
	return s.current, nil
}

func (s *Store) update(fn func(*models.TimerSettings)) (models.TimerSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)
	s.current = Normalize(next)

	// The in-memory value stands even when the write fails.
	if err := s.persistLocked(); err != nil {
		return s.current, err
	}
	return s.current, nil
}

func (s *Store) persistLocked() error {
	if s.cache == nil {
		return nil
	}
	data, err := json.Marshal(s.current)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.cache.PutValue(ctx, CacheKey, data); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	return nil
}

// Normalize clamps every field into range and snaps rest to half minutes.
func Normalize(ts models.TimerSettings) models.TimerSettings {
	ts.RoundMinutes = clampInt(ts.RoundMinutes, 0, MaxRoundMinutes)
	ts.RoundSeconds = clampInt(ts.RoundSeconds, 0, MaxRoundSeconds)
	ts.RestMinutes = QuantizeRest(ts.RestMinutes)
	return ts
}

// QuantizeRest rounds minutes to the nearest half minute within range.
func QuantizeRest(minutes float64) float64 {
	if math.IsNaN(minutes) {
		return 0
	}
	q := math.Round(minutes/RestStep) * RestStep
	if q < 0 {
		return 0
	}
	if q > MaxRestMinutes {
		return MaxRestMinutes
	}
	return q
}

// ParseRest parses rest text. A bare number is minutes; "90s" and "2m"
// carry explicit units. The result is quantized.
func ParseRest(text string) (float64, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidInput)
	}

	unit := 1.0
	switch {
	case strings.HasSuffix(text, "s"):
		unit = 1.0 / 60
		text = strings.TrimSpace(strings.TrimSuffix(text, "s"))
	case strings.HasSuffix(text, "m"):
		text = strings.TrimSpace(strings.TrimSuffix(text, "m"))
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInput, text)
	}
	return QuantizeRest(v * unit), nil
}

// ParseClock parses a round duration written as "M:SS" or bare minutes.
// Values are clamped rather than rejected.
func ParseClock(text string) (minutes, seconds int, err error) {
	text = strings.TrimSpace(text)
	minPart, secPart, hasSec := strings.Cut(text, ":")

	minutes, err = strconv.Atoi(strings.TrimSpace(minPart))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidInput, text)
	}
	if hasSec {
		seconds, err = strconv.Atoi(strings.TrimSpace(secPart))
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidInput, text)
		}
	}
	return clampInt(minutes, 0, MaxRoundMinutes), clampInt(seconds, 0, MaxRoundSeconds), nil
}

func normalizePresets(in []int) []int {
	seen := make(map[int]bool, len(in))
	var out []int
	for _, p := range in {
		if p <= 0 || p > MaxRoundMinutes || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
