// Package models defines the core domain types for dojotimer.
package models

import (
	"fmt"
	"time"
)

// TimerSettings is the persisted round/rest configuration.
type TimerSettings struct {
	RoundMinutes int     `json:"roundMinutes"`
	RoundSeconds int     `json:"roundSeconds"`
	RestMinutes  float64 `json:"restMinutes"`
}

// RoundDuration returns the round target.
func (s TimerSettings) RoundDuration() time.Duration {
	return time.Duration(s.RoundMinutes*60+s.RoundSeconds) * time.Second
}

// RestDuration returns the rest target. Rest is quantized to half minutes,
// so the result is always a whole number of seconds.
func (s TimerSettings) RestDuration() time.Duration {
	return time.Duration(s.RestMinutes*60) * time.Second
}

// Target returns the duration for a phase kind.
func (s TimerSettings) Target(kind PhaseKind) time.Duration {
	if kind == KindRest {
		return s.RestDuration()
	}
	return s.RoundDuration()
}

// String renders settings the way the CLI prints them.
func (s TimerSettings) String() string {
	return fmt.Sprintf("round %d:%02d, rest %gm", s.RoundMinutes, s.RoundSeconds, s.RestMinutes)
}

// PhaseKind distinguishes rounds from rests.
type PhaseKind string

const (
	KindNone  PhaseKind = ""
	KindRound PhaseKind = "round"
	KindRest  PhaseKind = "rest"
)

// Next returns the kind that follows k once it expires.
func (k PhaseKind) Next() PhaseKind {
	if k == KindRound {
		return KindRest
	}
	return KindRound
}

// Phase is the state of the round timer.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRoundRunning
	PhaseRoundPaused
	PhaseRoundExpiring
	PhaseRestRunning
	PhaseRestPaused
	PhaseRestExpiring
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRoundRunning:
		return "round_running"
	case PhaseRoundPaused:
		return "round_paused"
	case PhaseRoundExpiring:
		return "round_expiring"
	case PhaseRestRunning:
		return "rest_running"
	case PhaseRestPaused:
		return "rest_paused"
	case PhaseRestExpiring:
		return "rest_expiring"
	default:
		return "unknown"
	}
}

// Kind reports whether p belongs to a round or a rest.
func (p Phase) Kind() PhaseKind {
	switch p {
	case PhaseRoundRunning, PhaseRoundPaused, PhaseRoundExpiring:
		return KindRound
	case PhaseRestRunning, PhaseRestPaused, PhaseRestExpiring:
		return KindRest
	default:
		return KindNone
	}
}

// Running reports whether the countdown is live.
func (p Phase) Running() bool {
	return p == PhaseRoundRunning || p == PhaseRestRunning
}

// Paused reports whether the countdown is frozen by the user.
func (p Phase) Paused() bool {
	return p == PhaseRoundPaused || p == PhaseRestPaused
}

// Expiring reports whether the phase hit zero and waits for the next one.
func (p Phase) Expiring() bool {
	return p == PhaseRoundExpiring || p == PhaseRestExpiring
}

// Locked reports whether settings edits must be rejected.
func (p Phase) Locked() bool {
	return p.Running() || p.Expiring()
}

// RunningPhase returns the running state for a kind.
func RunningPhase(kind PhaseKind) Phase {
	if kind == KindRest {
		return PhaseRestRunning
	}
	return PhaseRoundRunning
}

// PausedPhase returns the paused state for a kind.
func PausedPhase(kind PhaseKind) Phase {
	if kind == KindRest {
		return PhaseRestPaused
	}
	return PhaseRoundPaused
}

// ExpiringPhase returns the expiring state for a kind.
func ExpiringPhase(kind PhaseKind) Phase {
	if kind == KindRest {
		return PhaseRestExpiring
	}
	return PhaseRoundExpiring
}

// Cue identifies an audio signal.
type Cue string

const (
	CueWarning Cue = "ten_seconds"
	CueExpiry  Cue = "expired"
)

// PhaseOutcome records how a phase instance ended.
type PhaseOutcome string

const (
	OutcomeCompleted PhaseOutcome = "completed"
	OutcomeAbandoned PhaseOutcome = "abandoned"
)

// PhaseRecord is one journal entry for a finished or abandoned phase.
type PhaseRecord struct {
	ID           string        `json:"id"`
	SessionID    string        `json:"session_id"`
	Kind         PhaseKind     `json:"kind"`
	Target       time.Duration `json:"target"`
	Elapsed      time.Duration `json:"elapsed"`
	Outcome      PhaseOutcome  `json:"outcome"`
	SettingsHash string        `json:"settings_hash,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	EndedAt      time.Time     `json:"ended_at"`
}

// PhaseSummary aggregates journal entries by kind and outcome.
type PhaseSummary struct {
	Kind    PhaseKind     `json:"kind"`
	Outcome PhaseOutcome  `json:"outcome"`
	Count   int           `json:"count"`
	Total   time.Duration `json:"total"`
}
