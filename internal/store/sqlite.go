package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const createResultsTable = `
CREATE TABLE IF NOT EXISTS results (
    run_id       TEXT NOT NULL,
    job_id       INTEGER NOT NULL,
    status_code  INTEGER NOT NULL,
    outcome      TEXT NOT NULL,
    completed_at DATETIME NOT NULL,
    PRIMARY KEY (run_id, job_id)
)`

// Compile-time interface satisfaction check.
var _ Sink = (*SQLiteSink)(nil)

// SQLiteSink stores outcomes in a results table keyed by (run_id, job_id).
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens the SQLite database at dbPath and runs migrations.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createResultsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create results table: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Save inserts the record, replacing an earlier one with the same key.
func (s *SQLiteSink) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec.Outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO results (run_id, job_id, status_code, outcome, completed_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.RunID, rec.JobID, rec.Outcome.StatusCode(), string(data), rec.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Load retrieves the record stored for one job of one run.
func (s *SQLiteSink) Load(ctx context.Context, runID string, jobID int) (Record, error) {
	rec := Record{RunID: runID, JobID: jobID}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT outcome, completed_at FROM results WHERE run_id = ? AND job_id = ?`,
		runID, jobID,
	).Scan(&data, &rec.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get result: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &rec.Outcome); err != nil {
		return Record{}, fmt.Errorf("decode result %d: %w", jobID, err)
	}
	return rec, nil
}
