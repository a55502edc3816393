// Package store provides SQLite-backed persistence for dojotimer: the local
// configuration cache and the phase journal.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fentz26/dojotimer/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides access to the dojotimer SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// The TUI and a CLI sub-command may share the file; one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_cache (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS phase_log (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		target_ms INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		settings_hash TEXT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_phase_log_session_id ON phase_log(session_id);
	CREATE INDEX IF NOT EXISTS idx_phase_log_ended_at ON phase_log(ended_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Cache Operations ---

// GetValue returns the cached value for key, or nil if there is none.
func (s *Store) GetValue(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_cache WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cache: %w", err)
	}
	return []byte(value), nil
}

// PutValue writes value under key, replacing any previous value.
func (s *Store) PutValue(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_cache (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert cache: %w", err)
	}
	return nil
}

// DeleteValue removes key from the cache.
func (s *Store) DeleteValue(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_cache WHERE key = ?`, key)
	return err
}

// --- Phase Journal Operations ---

// RecordPhase inserts a journal entry, assigning an ID if it has none.
func (s *Store) RecordPhase(ctx context.Context, rec *models.PhaseRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO phase_log (id, session_id, kind, target_ms, elapsed_ms, outcome, settings_hash, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Kind, rec.Target.Milliseconds(), rec.Elapsed.Milliseconds(),
		rec.Outcome, rec.SettingsHash, rec.StartedAt.UTC(), rec.EndedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert phase: %w", err)
	}
	return nil
}

// ListPhases returns the most recent journal entries, newest first.
// A limit of zero or less returns every entry.
func (s *Store) ListPhases(ctx context.Context, limit int) ([]models.PhaseRecord, error) {
	query := `SELECT id, session_id, kind, target_ms, elapsed_ms, outcome, settings_hash, started_at, ended_at
		FROM phase_log ORDER BY ended_at DESC, started_at DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query phases: %w", err)
	}
	defer rows.Close()

	var records []models.PhaseRecord
	for rows.Next() {
		var rec models.PhaseRecord
		var targetMs, elapsedMs int64
		var hash sql.NullString
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Kind, &targetMs, &elapsedMs,
			&rec.Outcome, &hash, &rec.StartedAt, &rec.EndedAt); err != nil {
			return nil, fmt.Errorf("scan phase: %w", err)
		}
		rec.Target = time.Duration(targetMs) * time.Millisecond
		rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		if hash.Valid {
			rec.SettingsHash = hash.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SummarizePhases counts journal entries and their total elapsed time by
// kind and outcome.
func (s *Store) SummarizePhases(ctx context.Context) ([]models.PhaseSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, outcome, COUNT(*), COALESCE(SUM(elapsed_ms), 0)
		 FROM phase_log GROUP BY kind, outcome ORDER BY kind, outcome`)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.PhaseSummary
	for rows.Next() {
		var sum models.PhaseSummary
		var totalMs int64
		if err := rows.Scan(&sum.Kind, &sum.Outcome, &sum.Count, &totalMs); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.Total = time.Duration(totalMs) * time.Millisecond
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// ClearPhases deletes every journal entry and returns how many were removed.
func (s *Store) ClearPhases(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM phase_log`)
	if err != nil {
		return 0, fmt.Errorf("delete phases: %w", err)
	}
	return result.RowsAffected()
}
