// Package audit keeps the phase journal: one record per finished or
// abandoned round or rest.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"time"

	"github.com/fentz26/dojotimer/internal/models"
	"github.com/fentz26/dojotimer/internal/store"
	"github.com/fentz26/dojotimer/internal/timer"
	"github.com/google/uuid"
)

const writeTimeout = 2 * time.Second

// Recorder writes timer phases to the store.
type Recorder struct {
	store     *store.Store
	logger    *log.Logger
	sessionID string
}

// NewRecorder creates a Recorder. Write failures go to logger.
func NewRecorder(s *store.Store, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Recorder{store: s, logger: logger}
}

// SessionID returns the current session, empty before the first start.
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Handle consumes timer events. Register it with Timer.OnEvent.
func (r *Recorder) Handle(ev timer.Event) {
	switch ev.Type {
	case timer.EventStarted:
		r.sessionID = uuid.New().String()
	case timer.EventPhaseEnded:
		if r.sessionID == "" {
			r.sessionID = uuid.New().String()
		}
		rec := &models.PhaseRecord{
			SessionID:    r.sessionID,
			Kind:         ev.Kind,
			Target:       ev.Target,
			Elapsed:      ev.Elapsed,
			Outcome:      ev.Outcome,
			SettingsHash: hashSettings(ev.Settings),
			StartedAt:    ev.StartedAt,
			EndedAt:      ev.At,
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := r.store.RecordPhase(ctx, rec); err != nil {
			r.logger.Printf("audit: record %s phase: %v", rec.Kind, err)
		}
	}
}

// hashSettings creates a SHA256 hash of the settings a phase ran with.
func hashSettings(s models.TimerSettings) string {
	data, err := json.Marshal(s)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
