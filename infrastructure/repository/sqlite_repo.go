package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"webharness-go/domain/run"
)

const runSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	flow        TEXT NOT NULL,
	logger_id   TEXT NOT NULL DEFAULT '',
	outcome     TEXT NOT NULL,
	started     TEXT NOT NULL,
	finished    TEXT NOT NULL DEFAULT '',
	assertions  TEXT NOT NULL DEFAULT '[]',
	attachments TEXT NOT NULL DEFAULT '[]',
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_flow ON runs(flow);
`

const saveAttempts = 3

// SQLiteRunRepository implements run.Repository on a local SQLite file.
type SQLiteRunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteRunRepository opens (and creates if needed) the history database at path.
// ":memory:" is accepted for tests.
func NewSQLiteRunRepository(path string, logger *slog.Logger) (*SQLiteRunRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: in-memory databases are per connection, and parallel
	// suites write one small row per flow.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(runSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteRunRepository{db: db, logger: logger}, nil
}

// Close closes the database.
func (r *SQLiteRunRepository) Close() error {
	return r.db.Close()
}

// Save inserts or replaces a record by ID.
func (r *SQLiteRunRepository) Save(ctx context.Context, rec *run.Record) error {
	assertions, err := json.Marshal(nonNil(rec.Assertions))
	if err != nil {
		return fmt.Errorf("failed to encode assertions: %w", err)
	}
	attachments, err := json.Marshal(nonNil(rec.Attachments))
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}

	var finished string
	if !rec.Finished.IsZero() {
		finished = rec.Finished.UTC().Format(time.RFC3339Nano)
	}

	for attempt := 1; ; attempt++ {
		_, err = r.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO runs
				(id, flow, logger_id, outcome, started, finished, assertions, attachments, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.Flow, rec.LoggerID, rec.Outcome.String(),
			rec.Started.UTC().Format(time.RFC3339Nano), finished,
			string(assertions), string(attachments), rec.Error,
		)
		if err == nil || !isBusyError(err) || attempt == saveAttempts {
			break
		}
		r.logger.Warn("History database busy, retrying", "id", rec.ID, "attempt", attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	r.logger.Debug("Run saved", "id", rec.ID, "flow", rec.Flow, "outcome", rec.Outcome)
	return nil
}

// Recent returns up to limit records, newest first.
func (r *SQLiteRunRepository) Recent(ctx context.Context, limit int) ([]*run.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, flow, logger_id, outcome, started, finished, assertions, attachments, error
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var recs []*run.Record
	for rows.Next() {
		var (
			rec                   run.Record
			outcome               string
			started, finished     string
			assertions, attaching string
		)
		if err := rows.Scan(&rec.ID, &rec.Flow, &rec.LoggerID, &outcome, &started, &finished,
			&assertions, &attaching, &rec.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.Outcome = run.ParseOutcome(outcome)
		if rec.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("invalid start time for run %s: %w", rec.ID, err)
		}
		if finished != "" {
			if rec.Finished, err = time.Parse(time.RFC3339Nano, finished); err != nil {
				return nil, fmt.Errorf("invalid finish time for run %s: %w", rec.ID, err)
			}
		}
		if err := json.Unmarshal([]byte(assertions), &rec.Assertions); err != nil {
			return nil, fmt.Errorf("failed to decode assertions: %w", err)
		}
		if err := json.Unmarshal([]byte(attaching), &rec.Attachments); err != nil {
			return nil, fmt.Errorf("failed to decode attachments: %w", err)
		}
		if len(rec.Assertions) == 0 {
			rec.Assertions = nil
		}
		if len(rec.Attachments) == 0 {
			rec.Attachments = nil
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return recs, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func isBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}

var _ run.Repository = (*SQLiteRunRepository)(nil)
