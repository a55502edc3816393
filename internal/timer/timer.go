// Package timer implements the tournament round timer: a wall-clock
// countdown engine, the round/rest phase machine and the audio cues.
//
// A Timer is not safe for concurrent use. Drive it from the goroutine that
// runs its Scheduler callbacks.
package timer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/fentz26/dojotimer/internal/clock"
	"github.com/fentz26/dojotimer/internal/models"
	"github.com/fentz26/dojotimer/internal/settings"
)

const (
	DefaultFrameInterval   = 16 * time.Millisecond
	DefaultTransitionDelay = time.Second
)

var (
	// ErrRunning is returned for settings edits while a phase is counting
	// down or expiring.
	ErrRunning = errors.New("timer is running")
	// ErrZeroDuration is returned when starting with a 0:00 round.
	ErrZeroDuration = errors.New("round duration is zero")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("timer is closed")
)

// EventType names a Timer notification.
type EventType string

const (
	EventStarted      EventType = "started"
	EventPaused       EventType = "paused"
	EventResumed      EventType = "resumed"
	EventTick         EventType = "tick"
	EventCue          EventType = "cue"
	EventExpired      EventType = "expired"
	EventPhaseStarted EventType = "phase_started"
	EventPhaseEnded   EventType = "phase_ended"
	EventReset        EventType = "reset"
	EventSettings     EventType = "settings"
	EventFinished     EventType = "finished"
)

// Event describes a state change. Tick events are only sent when the
// displayed second changes.
type Event struct {
	Type      EventType
	Phase     models.Phase
	Kind      models.PhaseKind
	Remaining time.Duration
	Target    time.Duration
	Elapsed   time.Duration
	Cue       models.Cue
	Outcome   models.PhaseOutcome
	// Settings are the ones in force when the phase started, or the new
	// values for EventSettings.
	Settings  models.TimerSettings
	StartedAt time.Time
	At        time.Time
	Round     int
}

// Options configures a Timer.
type Options struct {
	Clock     clock.Clock
	Scheduler Scheduler
	Settings  *settings.Store
	Warning   Sound
	Expiry    Sound

	FrameInterval   time.Duration
	TransitionDelay time.Duration
	// Rounds ends the session after that many completed rounds. Zero
	// alternates until reset.
	Rounds int
	Logger *log.Logger
}

// Snapshot is a read-only view of the timer.
type Snapshot struct {
	Phase           models.Phase
	Remaining       time.Duration
	Target          time.Duration
	Settings        models.TimerSettings
	Round           int
	CompletedRounds int
	CompletedRests  int
	Flags           CueFlags
}

// DisplaySeconds is the remaining time rounded up to whole seconds.
func (s Snapshot) DisplaySeconds() int {
	return DisplaySeconds(s.Remaining)
}

// Clock renders the remaining time as MM:SS.
func (s Snapshot) Clock() string {
	return FormatClock(s.Remaining)
}

// InFinalSeconds reports whether an active phase is inside the warning
// window.
func (s Snapshot) InFinalSeconds() bool {
	return s.Phase != models.PhaseIdle && s.Remaining > 0 && s.Remaining <= WarningThreshold
}

// Timer alternates rounds and rests until reset.
type Timer struct {
	clock    clock.Clock
	sched    Scheduler
	settings *settings.Store
	engine   *Engine
	cues     *Dispatcher
	logger   *log.Logger

	frameInterval   time.Duration
	transitionDelay time.Duration
	maxRounds       int

	phase           models.Phase
	phaseStartedAt  time.Time
	phaseSettings   models.TimerSettings
	round           int
	completedRounds int
	completedRests  int
	lastShown       int

	cancelFrame      func()
	cancelTransition func()
	observers        []func(Event)
	closed           bool
}

// New creates an idle Timer showing the round duration.
func New(opts Options) (*Timer, error) {
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("timer: scheduler is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Settings == nil {
		opts.Settings = settings.Load(context.Background(), nil, settings.Options{Logger: opts.Logger})
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.TransitionDelay < 0 {
		opts.TransitionDelay = 0
	}

	t := &Timer{
		clock:           opts.Clock,
		sched:           opts.Scheduler,
		settings:        opts.Settings,
		engine:          NewEngine(opts.Clock),
		cues:            NewDispatcher(opts.Warning, opts.Expiry, opts.Logger),
		logger:          opts.Logger,
		frameInterval:   opts.FrameInterval,
		transitionDelay: opts.TransitionDelay,
		maxRounds:       opts.Rounds,
		phase:           models.PhaseIdle,
	}
	t.engine.Reset(t.settings.RoundDuration())
	t.lastShown = DisplaySeconds(t.engine.Remaining())
	return t, nil
}

// OnEvent registers fn to receive every event, synchronously.
func (t *Timer) OnEvent(fn func(Event)) {
	t.observers = append(t.observers, fn)
}

// Phase returns the current phase.
func (t *Timer) Phase() models.Phase {
	return t.phase
}

// Settings returns the settings store the timer reads targets from.
func (t *Timer) Settings() *settings.Store {
	return t.settings
}

// Snapshot returns the current state.
func (t *Timer) Snapshot() Snapshot {
	return Snapshot{
		Phase:           t.phase,
		Remaining:       t.engine.Remaining(),
		Target:          t.engine.Target(),
		Settings:        t.settings.Settings(),
		Round:           t.round,
		CompletedRounds: t.completedRounds,
		CompletedRests:  t.completedRests,
		Flags:           t.cues.Flags(),
	}
}

// Start begins the first round from Idle, or resumes a paused phase.
// It does nothing while a phase is running or expiring.
func (t *Timer) Start() error {
	if t.closed {
		return ErrClosed
	}
	switch {
	case t.phase == models.PhaseIdle:
		if t.settings.RoundDuration() <= 0 {
			return ErrZeroDuration
		}
		t.round = 1
		ev := t.event(EventStarted)
		ev.Settings = t.settings.Settings()
		t.emit(ev)
		t.beginPhase(models.KindRound)
	case t.phase.Paused():
		t.Resume()
	}
	return nil
}

// Pause freezes a running phase. It reports whether anything changed.
func (t *Timer) Pause() bool {
	if !t.phase.Running() {
		return false
	}
	t.cancelPendingFrame()
	t.engine.Pause()
	t.cues.PauseAll()
	t.phase = models.PausedPhase(t.phase.Kind())
	t.emit(t.event(EventPaused))
	return true
}

// Resume continues a paused phase. It reports whether anything changed.
func (t *Timer) Resume() bool {
	if !t.phase.Paused() || t.closed {
		return false
	}
	t.engine.Resume()
	t.cues.ResumeAll(t.engine.Remaining())
	t.phase = models.RunningPhase(t.phase.Kind())
	t.emit(t.event(EventResumed))
	if t.phase.Running() {
		t.scheduleFrame()
	}
	return true
}

// Toggle is the single Start/Pause/Resume control.
func (t *Timer) Toggle() error {
	switch {
	case t.phase.Running():
		t.Pause()
		return nil
	case t.phase.Expiring():
		return nil
	default:
		return t.Start()
	}
}

// Reset returns to Idle showing the round duration. Pending frames and
// phase transitions are cancelled. Calling it again is harmless.
func (t *Timer) Reset() {
	t.cancelPendingFrame()
	t.cancelPendingTransition()
	t.cues.StopAll()

	if t.phase.Running() || t.phase.Paused() {
		t.engine.Tick()
		t.emit(t.endEvent(models.OutcomeAbandoned))
	}

	t.phase = models.PhaseIdle
	t.round = 0
	t.completedRounds = 0
	t.completedRests = 0
	t.phaseStartedAt = time.Time{}
	t.engine.Reset(t.settings.RoundDuration())
	t.cues.Arm()
	t.lastShown = DisplaySeconds(t.engine.Remaining())
	t.emit(t.event(EventReset))
}

// Close resets the timer and refuses further starts.
func (t *Timer) Close() {
	if t.closed {
		return
	}
	t.Reset()
	t.closed = true
}

// SetRoundDuration edits the round length.
func (t *Timer) SetRoundDuration(minutes, seconds int) error {
	return t.edit(func(s *settings.Store) (models.TimerSettings, error) {
		return s.SetRound(minutes, seconds)
	})
}

// SetRestDuration edits the rest length in minutes.
func (t *Timer) SetRestDuration(minutes float64) error {
	return t.edit(func(s *settings.Store) (models.TimerSettings, error) {
		return s.SetRest(minutes)
	})
}

// AdjustRoundMinutes steps the round minutes by delta.
func (t *Timer) AdjustRoundMinutes(delta int) error {
	return t.edit(func(s *settings.Store) (models.TimerSettings, error) {
		return s.StepRoundMinutes(delta)
	})
}

// AdjustRoundSeconds steps the round seconds by delta.
func (t *Timer) AdjustRoundSeconds(delta int) error {
	return t.edit(func(s *settings.Store) (models.TimerSettings, error) {
		return s.StepRoundSeconds(delta)
	})
}

// StepRest moves the rest duration by steps half minutes.
func (t *Timer) StepRest(steps int) error {
	return t.edit(func(s *settings.Store) (models.TimerSettings, error) {
		return s.StepRest(steps)
	})
}

// SelectPreset sets the round to minutes:00 and resets the timer.
func (t *Timer) SelectPreset(minutes int) error {
	if t.phase.Locked() {
		return ErrRunning
	}
	if !t.settings.IsPreset(minutes) {
		return fmt.Errorf("%w: %d", settings.ErrUnknownPreset, minutes)
	}
	if err := t.edit(func(s *settings.Store) (models.TimerSettings, error) {
		return s.ApplyPreset(minutes)
	}); err != nil {
		return err
	}
	t.Reset()
	return nil
}

// edit applies a settings mutation. While paused the new values are saved
// but the in-flight phase keeps its target; they take effect at the next
// phase or after a reset.
func (t *Timer) edit(fn func(*settings.Store) (models.TimerSettings, error)) error {
	if t.phase.Locked() {
		return ErrRunning
	}

	updated, err := fn(t.settings)
	if err != nil {
		if errors.Is(err, settings.ErrUnknownPreset) {
			return err
		}
		t.logger.Printf("timer: %v", err)
	}

	if t.phase == models.PhaseIdle {
		t.engine.Reset(updated.RoundDuration())
		t.lastShown = DisplaySeconds(t.engine.Remaining())
	}
	ev := t.event(EventSettings)
	ev.Settings = updated
	t.emit(ev)
	return nil
}

func (t *Timer) beginPhase(kind models.PhaseKind) {
	t.phaseSettings = t.settings.Settings()
	t.engine.Start(t.phaseSettings.Target(kind))
	t.cues.Arm()
	t.phase = models.RunningPhase(kind)
	t.phaseStartedAt = t.clock.Now()
	t.lastShown = DisplaySeconds(t.engine.Remaining())
	t.emit(t.event(EventPhaseStarted))
	if t.phase.Running() {
		t.scheduleFrame()
	}
}

// frame is one animation step: tick, then cues, then either expire or
// schedule the next frame.
func (t *Timer) frame() {
	t.cancelFrame = nil
	if !t.phase.Running() {
		return
	}

	remaining := t.engine.Tick()
	fired := t.cues.Evaluate(remaining, t.engine.Target())

	if shown := DisplaySeconds(remaining); shown != t.lastShown {
		t.lastShown = shown
		t.emit(t.event(EventTick))
	}
	for _, cue := range fired {
		ev := t.event(EventCue)
		ev.Cue = cue
		t.emit(ev)
	}

	// An observer may have paused or reset the timer.
	if !t.phase.Running() {
		return
	}
	if remaining <= 0 {
		t.expire()
		return
	}
	t.scheduleFrame()
}

func (t *Timer) expire() {
	kind := t.phase.Kind()
	t.phase = models.ExpiringPhase(kind)
	if kind == models.KindRound {
		t.completedRounds++
	} else {
		t.completedRests++
	}

	expired, ended := t.event(EventExpired), t.endEvent(models.OutcomeCompleted)
	t.emit(expired)
	t.emit(ended)
	if !t.phase.Expiring() {
		return
	}
	t.cancelTransition = t.sched.AfterFunc(t.transitionDelay, t.transition)
}

func (t *Timer) transition() {
	t.cancelTransition = nil
	if !t.phase.Expiring() {
		return
	}

	next := t.phase.Kind().Next()
	if next == models.KindRest && t.maxRounds > 0 && t.completedRounds >= t.maxRounds {
		t.emit(t.event(EventFinished))
		t.Reset()
		return
	}
	if next == models.KindRound {
		if t.settings.RoundDuration() <= 0 {
			t.logger.Printf("timer: round duration is zero, stopping")
			t.Reset()
			return
		}
		t.round++
	}
	t.beginPhase(next)
}

func (t *Timer) scheduleFrame() {
	t.cancelPendingFrame()
	if t.closed {
		return
	}
	t.cancelFrame = t.sched.AfterFunc(t.frameInterval, t.frame)
}

func (t *Timer) cancelPendingFrame() {
	if t.cancelFrame != nil {
		t.cancelFrame()
		t.cancelFrame = nil
	}
}

func (t *Timer) cancelPendingTransition() {
	if t.cancelTransition != nil {
		t.cancelTransition()
		t.cancelTransition = nil
	}
}

func (t *Timer) event(typ EventType) Event {
	return Event{
		Type:      typ,
		Phase:     t.phase,
		Kind:      t.phase.Kind(),
		Remaining: t.engine.Remaining(),
		Target:    t.engine.Target(),
		Elapsed:   t.engine.Elapsed(),
		Settings:  t.phaseSettings,
		StartedAt: t.phaseStartedAt,
		At:        t.clock.Now(),
		Round:     t.round,
	}
}

func (t *Timer) endEvent(outcome models.PhaseOutcome) Event {
	ev := t.event(EventPhaseEnded)
	ev.Outcome = outcome
	return ev
}

func (t *Timer) emit(ev Event) {
	for _, fn := range t.observers {
		fn(ev)
	}
}
