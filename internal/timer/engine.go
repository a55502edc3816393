package timer

import (
	"time"

	"github.com/fentz26/dojotimer/internal/clock"
)

type engineState int

const (
	engineIdle engineState = iota
	engineRunning
	enginePaused
)

// Engine derives the remaining time of one phase from the wall clock.
// Remaining time is computed from the start instant and the accumulated
// pause, never by counting ticks, so callback jitter does not drift it.
type Engine struct {
	clock     clock.Clock
	state     engineState
	target    time.Duration
	remaining time.Duration
	startedAt time.Time
	pausedAt  time.Time
	pausedFor time.Duration
}

// NewEngine returns an idle engine with no target.
func NewEngine(c clock.Clock) *Engine {
	return &Engine{clock: c}
}

// Start begins a countdown of target from now.
func (e *Engine) Start(target time.Duration) {
	if target < 0 {
		target = 0
	}
	e.state = engineRunning
	e.target = target
	e.remaining = target
	e.startedAt = e.clock.Now()
	e.pausedAt = time.Time{}
	e.pausedFor = 0
}

// Pause freezes the countdown. It reports false unless the engine was running.
func (e *Engine) Pause() bool {
	if e.state != engineRunning {
		return false
	}
	e.Tick()
	e.pausedAt = e.clock.Now()
	e.state = enginePaused
	return true
}

// Resume continues a paused countdown. Time spent paused is not counted.
func (e *Engine) Resume() bool {
	if e.state != enginePaused {
		return false
	}
	if d := e.clock.Now().Sub(e.pausedAt); d > 0 {
		e.pausedFor += d
	}
	e.state = engineRunning
	return true
}

// Tick recomputes and returns the remaining time. While running the value
// never increases, even if the host clock steps backwards.
func (e *Engine) Tick() time.Duration {
	if e.state != engineRunning {
		return e.remaining
	}

	elapsed := e.clock.Now().Sub(e.startedAt) - e.pausedFor
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := e.target - elapsed
	if remaining < 0 {
		remaining = 0
	}
	if remaining < e.remaining {
		e.remaining = remaining
	}
	return e.remaining
}

// Reset stops the engine and shows target as the remaining time.
func (e *Engine) Reset(target time.Duration) {
	if target < 0 {
		target = 0
	}
	e.state = engineIdle
	e.target = target
	e.remaining = target
	e.startedAt = time.Time{}
	e.pausedAt = time.Time{}
	e.pausedFor = 0
}

func (e *Engine) Remaining() time.Duration { return e.remaining }
func (e *Engine) Target() time.Duration    { return e.target }
func (e *Engine) Running() bool            { return e.state == engineRunning }
func (e *Engine) Paused() bool             { return e.state == enginePaused }

// Elapsed is the counted part of the target.
func (e *Engine) Elapsed() time.Duration {
	return e.target - e.remaining
}
