// Package sqlite implements a file-backed recording archive on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/runlens/pkg/domain"
	"github.com/aretw0/runlens/pkg/ports"
)

// Archive implements ports.Archive on a local SQLite database.
type Archive struct {
	db *sql.DB
}

var _ ports.Archive = (*Archive)(nil)

// New opens (or creates) the database at dbPath.
func New(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	archive := &Archive{db: db}
	if err := archive.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return archive, nil
}

func (a *Archive) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS recordings (
			run_id TEXT PRIMARY KEY,
			question TEXT NOT NULL DEFAULT '',
			events TEXT NOT NULL,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recordings_recorded_at ON recordings(recorded_at)`,
	}
	for _, stmt := range statements {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save upserts the recording.
func (a *Archive) Save(ctx context.Context, rec domain.Recording) error {
	events, err := json.Marshal(rec.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO recordings (run_id, question, events, recorded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			question = excluded.question,
			events = excluded.events,
			recorded_at = excluded.recorded_at
	`, rec.RunID, rec.Question, string(events), rec.RecordedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save recording: %w", err)
	}
	return nil
}

// Load retrieves a recording.
func (a *Archive) Load(ctx context.Context, runID string) (domain.Recording, error) {
	var (
		rec        domain.Recording
		events     string
		recordedAt int64
	)
	err := a.db.QueryRowContext(ctx,
		`SELECT run_id, question, events, recorded_at FROM recordings WHERE run_id = ?`, runID,
	).Scan(&rec.RunID, &rec.Question, &events, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Recording{}, fmt.Errorf("run %q: %w", runID, domain.ErrRecordingNotFound)
	}
	if err != nil {
		return domain.Recording{}, fmt.Errorf("failed to load recording: %w", err)
	}

	if err := json.Unmarshal([]byte(events), &rec.Events); err != nil {
		return domain.Recording{}, fmt.Errorf("failed to unmarshal events: %w", err)
	}
	rec.RecordedAt = time.Unix(0, recordedAt).UTC()
	return rec, nil
}

// List returns archived runs, most recent first.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT run_id FROM recordings ORDER BY recorded_at DESC, run_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a recording.
func (a *Archive) Delete(ctx context.Context, runID string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM recordings WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	return nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}
