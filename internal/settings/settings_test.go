package settings

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fentz26/dojotimer/internal/models"
	"github.com/fentz26/dojotimer/internal/store"
)

type failingCache struct {
	*MemoryCache
	getErr error
	putErr error
}

func (f *failingCache) GetValue(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemoryCache.GetValue(ctx, key)
}

func (f *failingCache) PutValue(ctx context.Context, key string, value []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemoryCache.PutValue(ctx, key, value)
}

func TestLoadDefaults(t *testing.T) {
	s := Load(context.Background(), NewMemoryCache(), Options{})

	got := s.Settings()
	if got != DefaultSettings() {
		t.Errorf("Expected defaults %+v, got %+v", DefaultSettings(), got)
	}
	if s.RoundDuration().Seconds() != 300 {
		t.Errorf("Expected 300s round, got %v", s.RoundDuration())
	}
	if s.RestDuration().Seconds() != 60 {
		t.Errorf("Expected 60s rest, got %v", s.RestDuration())
	}
}

func TestLoadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    models.TimerSettings
		logged  bool
	}{
		{"valid", `{"roundMinutes":3,"roundSeconds":30,"restMinutes":1.5}`, models.TimerSettings{RoundMinutes: 3, RoundSeconds: 30, RestMinutes: 1.5}, false},
		{"missing fields keep defaults", `{"roundSeconds":15}`, models.TimerSettings{RoundMinutes: 5, RoundSeconds: 15, RestMinutes: 1}, false},
		{"out of range is clamped", `{"roundMinutes":-2,"roundSeconds":75,"restMinutes":1.3}`, models.TimerSettings{RoundMinutes: 0, RoundSeconds: 59, RestMinutes: 1.5}, false},
		{"corrupt json", `{"roundMinutes":`, DefaultSettings(), true},
		{"wrong types", `{"roundMinutes":"five"}`, DefaultSettings(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewMemoryCache()
			cache.PutValue(context.Background(), CacheKey, []byte(tt.payload))

			var buf bytes.Buffer
			s := Load(context.Background(), cache, Options{Logger: log.New(&buf, "", 0)})

			if got := s.Settings(); got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
			if logged := buf.Len() > 0; logged != tt.logged {
				t.Errorf("Expected logged=%v, got %v (%q)", tt.logged, logged, buf.String())
			}
		})
	}
}

func TestLoadCacheReadError(t *testing.T) {
	cache := &failingCache{MemoryCache: NewMemoryCache(), getErr: errors.New("disk gone")}
	var buf bytes.Buffer

	s := Load(context.Background(), cache, Options{Logger: log.New(&buf, "", 0)})

	if s.Settings() != DefaultSettings() {
		t.Errorf("Expected defaults after read error, got %+v", s.Settings())
	}
	if !strings.Contains(buf.String(), "disk gone") {
		t.Errorf("Expected read error to be logged, got %q", buf.String())
	}
}

func TestLoadCustomDefaultsAndPresets(t *testing.T) {
	defaults := models.TimerSettings{RoundMinutes: 0, RoundSeconds: 15, RestMinutes: 1}
	s := Load(context.Background(), nil, Options{Defaults: &defaults, Presets: []int{10, 3, 3, 0, 5}})

	if s.Settings() != defaults {
		t.Errorf("Expected custom defaults, got %+v", s.Settings())
	}
	want := []int{3, 5, 10}
	got := s.Presets()
	if len(got) != len(want) {
		t.Fatalf("Expected presets %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected presets %v, got %v", want, got)
		}
	}
}

func TestWriteThrough(t *testing.T) {
	cache := NewMemoryCache()
	s := Load(context.Background(), cache, Options{})

	if _, err := s.SetRound(6, 30); err != nil {
		t.Fatalf("SetRound failed: %v", err)
	}
	data, _ := cache.GetValue(context.Background(), CacheKey)
	want := `{"roundMinutes":6,"roundSeconds":30,"restMinutes":1}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}

	// A fresh session sees the write.
	again := Load(context.Background(), cache, Options{})
	if again.Settings().RoundSeconds != 30 {
		t.Errorf("Expected reload to see 30 seconds, got %d", again.Settings().RoundSeconds)
	}
}

func TestMutations(t *testing.T) {
	tests := []struct {
		name string
		op   func(*Store) (models.TimerSettings, error)
		want models.TimerSettings
	}{
		{"set round", func(s *Store) (models.TimerSettings, error) { return s.SetRound(1, 30) },
			models.TimerSettings{RoundMinutes: 1, RoundSeconds: 30, RestMinutes: 1}},
		{"set round clamps", func(s *Store) (models.TimerSettings, error) { return s.SetRound(150, -4) },
			models.TimerSettings{RoundMinutes: 99, RoundSeconds: 0, RestMinutes: 1}},
		{"set rest quantizes", func(s *Store) (models.TimerSettings, error) { return s.SetRest(2.2) },
			models.TimerSettings{RoundMinutes: 5, RoundSeconds: 0, RestMinutes: 2}},
		{"set rest negative", func(s *Store) (models.TimerSettings, error) { return s.SetRest(-1) },
			models.TimerSettings{RoundMinutes: 5, RoundSeconds: 0, RestMinutes: 0}},
		{"set rest nan", func(s *Store) (models.TimerSettings, error) { return s.SetRest(math.NaN()) },
			models.TimerSettings{RoundMinutes: 5, RoundSeconds: 0, RestMinutes: 0}},
		{"step minutes down", func(s *Store) (models.TimerSettings, error) { return s.StepRoundMinutes(-10) },
			models.TimerSettings{RoundMinutes: 0, RoundSeconds: 0, RestMinutes: 1}},
		{"step seconds does not carry", func(s *Store) (models.TimerSettings, error) { return s.StepRoundSeconds(75) },
			models.TimerSettings{RoundMinutes: 5, RoundSeconds: 59, RestMinutes: 1}},
		{"step rest", func(s *Store) (models.TimerSettings, error) { return s.StepRest(1) },
			models.TimerSettings{RoundMinutes: 5, RoundSeconds: 0, RestMinutes: 1.5}},
		{"step rest floor", func(s *Store) (models.TimerSettings, error) { return s.StepRest(-5) },
			models.TimerSettings{RoundMinutes: 5, RoundSeconds: 0, RestMinutes: 0}},
		{"preset", func(s *Store) (models.TimerSettings, error) { return s.ApplyPreset(7) },
			models.TimerSettings{RoundMinutes: 7, RoundSeconds: 0, RestMinutes: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Load(context.Background(), NewMemoryCache(), Options{})
			got, err := tt.op(s)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
			if s.Settings() != tt.want {
				t.Errorf("Expected stored %+v, got %+v", tt.want, s.Settings())
			}
		})
	}
}

func TestApplyPresetUnknown(t *testing.T) {
	s := Load(context.Background(), NewMemoryCache(), Options{})
	s.SetRound(3, 15)

	_, err := s.ApplyPreset(9)
	if !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("Expected ErrUnknownPreset, got %v", err)
	}
	if got := s.Settings(); got.RoundMinutes != 3 || got.RoundSeconds != 15 {
		t.Errorf("Expected settings unchanged, got %+v", got)
	}
}

func TestPersistFailureKeepsValue(t *testing.T) {
	cache := &failingCache{MemoryCache: NewMemoryCache(), putErr: errors.New("read-only")}
	s := Load(context.Background(), cache, Options{})

	got, err := s.SetRound(2, 0)
	if err == nil || !strings.Contains(err.Error(), "read-only") {
		t.Fatalf("Expected wrapped persist error, got %v", err)
	}
	if got.RoundMinutes != 2 || s.Settings().RoundMinutes != 2 {
		t.Errorf("Expected in-memory value to stand, got %+v", s.Settings())
	}
}

func TestReset(t *testing.T) {
	cache := NewMemoryCache()
	s := Load(context.Background(), cache, Options{})
	s.SetRest(3)

	got, err := s.Reset()
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if got != DefaultSettings() {
		t.Errorf("Expected defaults, got %+v", got)
	}
	if data, _ := cache.GetValue(context.Background(), CacheKey); data != nil {
		t.Errorf("Expected cached record to be removed, got %s", data)
	}
}

func TestQuantizeRest(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{0.2, 0},
		{0.25, 0.5},
		{0.74, 0.5},
		{1, 1},
		{1.3, 1.5},
		{-3, 0},
		{250, 99},
	}
	for _, tt := range tests {
		if got := QuantizeRest(tt.in); got != tt.want {
			t.Errorf("QuantizeRest(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestParseRest(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1.5", 1.5, false},
		{"2", 2, false},
		{"90s", 1.5, false},
		{"45s", 1, false},
		{"2m", 2, false},
		{" 3 M ", 3, false},
		{"", 0, true},
		{"abc", 0, true},
		{"1:30", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRest(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("Expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in       string
		min, sec int
		wantErr  bool
	}{
		{"5:30", 5, 30, false},
		{"7", 7, 0, false},
		{"0:15", 0, 15, false},
		{"5:75", 5, 59, false},
		{"120:00", 99, 0, false},
		{"x:10", 0, 0, true},
		{"5:xx", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, s, err := ParseClock(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if m != tt.min || s != tt.sec {
				t.Errorf("Expected %d:%02d, got %d:%02d", tt.min, tt.sec, m, s)
			}
		})
	}
}

func TestSQLiteCache(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	s := Load(context.Background(), st, Options{})
	if _, err := s.ApplyPreset(8); err != nil {
		t.Fatalf("ApplyPreset failed: %v", err)
	}

	again := Load(context.Background(), st, Options{})
	if again.Settings().RoundMinutes != 8 {
		t.Errorf("Expected 8 minutes after reload, got %d", again.Settings().RoundMinutes)
	}
}
