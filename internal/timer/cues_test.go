package timer

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/fentz26/dojotimer/internal/models"
)

type fakeSound struct {
	plays, pauses, resumes, stops int
	playing                       bool
	err                           error
}

func (s *fakeSound) Play() error {
	s.plays++
	s.playing = s.err == nil
	return s.err
}

func (s *fakeSound) Pause() error {
	s.pauses++
	s.playing = false
	return nil
}

func (s *fakeSound) Resume() error {
	s.resumes++
	s.playing = true
	return nil
}

func (s *fakeSound) Stop() error {
	s.stops++
	s.playing = false
	return nil
}

func (s *fakeSound) Playing() bool { return s.playing }

func TestEvaluateFiresOnce(t *testing.T) {
	warning, expiry := &fakeSound{}, &fakeSound{}
	d := NewDispatcher(warning, expiry, nil)
	target := 30 * time.Second

	var fired []models.Cue
	for rem := target; rem >= 0; rem -= 16 * time.Millisecond {
		fired = append(fired, d.Evaluate(rem, target)...)
	}
	fired = append(fired, d.Evaluate(0, target)...)

	if len(fired) != 2 || fired[0] != models.CueWarning || fired[1] != models.CueExpiry {
		t.Fatalf("Expected [warning expiry], got %v", fired)
	}
	if warning.plays != 1 || expiry.plays != 1 {
		t.Errorf("Expected one play each, got warning=%d expiry=%d", warning.plays, expiry.plays)
	}
	if flags := d.Flags(); !flags.TenSecondFired || !flags.ExpiryFired {
		t.Errorf("Expected both flags set, got %+v", flags)
	}
}

func TestEvaluateThresholds(t *testing.T) {
	tests := []struct {
		name      string
		remaining time.Duration
		target    time.Duration
		want      []models.Cue
	}{
		{"above warning", 10*time.Second + 51*time.Millisecond, time.Minute, nil},
		{"warning window edge", 10*time.Second + 50*time.Millisecond, time.Minute, []models.Cue{models.CueWarning}},
		{"coarse tick past warning", 7 * time.Second, time.Minute, []models.Cue{models.CueWarning}},
		{"jump past both", 0, time.Minute, []models.Cue{models.CueWarning, models.CueExpiry}},
		{"expiry window", 40 * time.Millisecond, 5 * time.Second, []models.Cue{models.CueExpiry}},
		{"short phase skips warning", 3 * time.Second, 5 * time.Second, nil},
		{"ten second phase warns at start", 10 * time.Second, 10 * time.Second, []models.Cue{models.CueWarning}},
		{"zero phase", 0, 0, []models.Cue{models.CueExpiry}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(&fakeSound{}, &fakeSound{}, nil)
			got := d.Evaluate(tt.remaining, tt.target)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestArmClearsFlags(t *testing.T) {
	d := NewDispatcher(&fakeSound{}, &fakeSound{}, nil)
	d.Evaluate(0, time.Minute)
	d.Arm()

	if d.Flags() != (CueFlags{}) {
		t.Errorf("Expected cleared flags, got %+v", d.Flags())
	}
	if got := d.Evaluate(0, time.Minute); len(got) != 2 {
		t.Errorf("Expected both cues to fire again after Arm, got %v", got)
	}
}

func TestPauseResumeAll(t *testing.T) {
	tests := []struct {
		name        string
		remaining   time.Duration
		wantResumes int
		wantStops   int
	}{
		{"inside warning window", 8 * time.Second, 1, 0},
		{"back outside window", 10*time.Second + 20*time.Millisecond, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warning, expiry := &fakeSound{}, &fakeSound{}
			d := NewDispatcher(warning, expiry, nil)
			d.Evaluate(10*time.Second, time.Minute)

			d.PauseAll()
			if warning.pauses != 1 {
				t.Fatalf("Expected warning paused, got %d pauses", warning.pauses)
			}
			if expiry.pauses != 0 {
				t.Errorf("Expected idle expiry cue untouched, got %d pauses", expiry.pauses)
			}

			d.ResumeAll(tt.remaining)
			if warning.resumes != tt.wantResumes {
				t.Errorf("Expected %d resumes, got %d", tt.wantResumes, warning.resumes)
			}
			if warning.stops != tt.wantStops {
				t.Errorf("Expected %d stops, got %d", tt.wantStops, warning.stops)
			}
			if warning.plays != 1 {
				t.Errorf("Expected no restart from the beginning, got %d plays", warning.plays)
			}
		})
	}
}

func TestResumeAllWithoutPause(t *testing.T) {
	warning := &fakeSound{}
	d := NewDispatcher(warning, nil, nil)

	d.ResumeAll(5 * time.Second)
	if warning.resumes != 0 {
		t.Errorf("Expected nothing to resume, got %d", warning.resumes)
	}
}

func TestStopAll(t *testing.T) {
	warning, expiry := &fakeSound{}, &fakeSound{}
	d := NewDispatcher(warning, expiry, nil)
	d.Evaluate(0, time.Minute)
	d.PauseAll()
	d.StopAll()

	if warning.stops != 1 || expiry.stops != 1 {
		t.Errorf("Expected both cues stopped, got warning=%d expiry=%d", warning.stops, expiry.stops)
	}
	d.ResumeAll(0)
	if warning.resumes != 0 || expiry.resumes != 0 {
		t.Error("Expected StopAll to forget interrupted cues")
	}
}

func TestPlaybackErrorsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	warning := &fakeSound{err: errors.New("device busy")}
	d := NewDispatcher(warning, nil, log.New(&buf, "", 0))

	got := d.Evaluate(0, time.Minute)
	if len(got) != 2 {
		t.Errorf("Expected cues to count as fired despite errors, got %v", got)
	}
	if !strings.Contains(buf.String(), "device busy") {
		t.Errorf("Expected playback error in log, got %q", buf.String())
	}
}
