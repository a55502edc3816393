package timer

import (
	"io"
	"log"
	"time"

	"github.com/fentz26/dojotimer/internal/models"
)

const (
	// WarningThreshold is the remaining time at which the warning cue plays.
	WarningThreshold = 10 * time.Second
	// cueTolerance lets a frame that lands just above a threshold fire it.
	cueTolerance = 50 * time.Millisecond
)

// Sound is a playable audio clip. Stop halts playback and rewinds.
type Sound interface {
	Play() error
	Pause() error
	Resume() error
	Stop() error
	Playing() bool
}

// CueFlags latch each cue once per phase instance.
type CueFlags struct {
	TenSecondFired bool `json:"ten_second_fired"`
	ExpiryFired    bool `json:"expiry_fired"`
}

// Dispatcher plays the warning and expiry cues as the countdown crosses
// their thresholds. Playback errors are logged, never returned.
type Dispatcher struct {
	sounds      map[models.Cue]Sound
	flags       CueFlags
	interrupted []models.Cue
	logger      *log.Logger
}

// NewDispatcher wires the two cue sounds. A nil sound is treated as silent.
func NewDispatcher(warning, expiry Sound, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	d := &Dispatcher{sounds: make(map[models.Cue]Sound, 2), logger: logger}
	if warning != nil {
		d.sounds[models.CueWarning] = warning
	}
	if expiry != nil {
		d.sounds[models.CueExpiry] = expiry
	}
	return d
}

// Arm clears the latches for a new phase instance.
func (d *Dispatcher) Arm() {
	d.flags = CueFlags{}
	d.interrupted = nil
}

// Flags returns the current latches.
func (d *Dispatcher) Flags() CueFlags {
	return d.flags
}

// Evaluate fires every cue whose threshold remaining has reached and
// returns them in firing order. The warning is skipped for targets shorter
// than the warning threshold.
func (d *Dispatcher) Evaluate(remaining, target time.Duration) []models.Cue {
	var fired []models.Cue

	if !d.flags.TenSecondFired && target >= WarningThreshold && remaining <= WarningThreshold+cueTolerance {
		d.flags.TenSecondFired = true
		d.play(models.CueWarning)
		fired = append(fired, models.CueWarning)
	}
	if !d.flags.ExpiryFired && remaining <= cueTolerance {
		d.flags.ExpiryFired = true
		d.play(models.CueExpiry)
		fired = append(fired, models.CueExpiry)
	}
	return fired
}

// PauseAll pauses every playing cue and remembers it for ResumeAll.
func (d *Dispatcher) PauseAll() {
	d.interrupted = nil
	for _, cue := range cueOrder {
		s, ok := d.sounds[cue]
		if !ok || !s.Playing() {
			continue
		}
		if err := s.Pause(); err != nil {
			d.logger.Printf("cue %s: pause: %v", cue, err)
		}
		d.interrupted = append(d.interrupted, cue)
	}
}

// ResumeAll continues the cues PauseAll interrupted. A warning is only
// resumed while remaining is still inside the warning window; otherwise it
// is stopped.
func (d *Dispatcher) ResumeAll(remaining time.Duration) {
	for _, cue := range d.interrupted {
		s := d.sounds[cue]
		if cue == models.CueWarning && remaining > WarningThreshold {
			if err := s.Stop(); err != nil {
				d.logger.Printf("cue %s: stop: %v", cue, err)
			}
			continue
		}
		if err := s.Resume(); err != nil {
			d.logger.Printf("cue %s: resume: %v", cue, err)
		}
	}
	d.interrupted = nil
}

// StopAll halts and rewinds every cue.
func (d *Dispatcher) StopAll() {
	for _, cue := range cueOrder {
		if s, ok := d.sounds[cue]; ok {
			if err := s.Stop(); err != nil {
				d.logger.Printf("cue %s: stop: %v", cue, err)
			}
		}
	}
	d.interrupted = nil
}

var cueOrder = []models.Cue{models.CueWarning, models.CueExpiry}

func (d *Dispatcher) play(cue models.Cue) {
	s, ok := d.sounds[cue]
	if !ok {
		return
	}
	if err := s.Play(); err != nil {
		d.logger.Printf("cue %s: play: %v", cue, err)
	}
}
