// Package runindex keeps a SQLite index of finished runs.
package runindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry summarizes one run.
type Entry struct {
	RunID       string
	Agent       string
	Task        string
	Status      string
	Steps       int
	ErrorCode   string
	FinalAnswer string
	TracePath   string
	StartedAt   time.Time
	EndedAt     time.Time
}

// Index stores run summaries in SQLite.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index at path.
func Open(path string) (*Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// Close closes the database connection.
func (i *Index) Close() error {
	return i.db.Close()
}

func (i *Index) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		agent TEXT NOT NULL,
		task TEXT NOT NULL,
		status TEXT NOT NULL,
		steps INTEGER NOT NULL,
		error_code TEXT,
		final_answer TEXT,
		trace_path TEXT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	if _, err := i.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record inserts or replaces a run summary.
func (i *Index) Record(e Entry) error {
	if e.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	_, err := i.db.Exec(`
		INSERT INTO runs (run_id, agent, task, status, steps, error_code, final_answer, trace_path, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			steps = excluded.steps,
			error_code = excluded.error_code,
			final_answer = excluded.final_answer,
			ended_at = excluded.ended_at
	`, e.RunID, e.Agent, e.Task, e.Status, e.Steps, e.ErrorCode, e.FinalAnswer, e.TracePath,
		e.StartedAt.UTC(), e.EndedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Get returns one run, or nil when it is not indexed.
func (i *Index) Get(runID string) (*Entry, error) {
	row := i.db.QueryRow(`
		SELECT run_id, agent, task, status, steps, error_code, final_answer, trace_path, started_at, ended_at
		FROM runs WHERE run_id = ?
	`, runID)
	e, err := scan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return e, nil
}

// List returns the most recent runs first. A non-positive limit lists all.
func (i *Index) List(limit int) ([]Entry, error) {
	query := `
		SELECT run_id, agent, task, status, steps, error_code, final_answer, trace_path, started_at, ended_at
		FROM runs ORDER BY started_at DESC, run_id`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := i.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(s scanner) (*Entry, error) {
	var e Entry
	var errorCode, finalAnswer, tracePath sql.NullString
	var endedAt sql.NullTime
	if err := s.Scan(&e.RunID, &e.Agent, &e.Task, &e.Status, &e.Steps,
		&errorCode, &finalAnswer, &tracePath, &e.StartedAt, &endedAt); err != nil {
		return nil, err
	}
	e.ErrorCode = errorCode.String
	e.FinalAnswer = finalAnswer.String
	e.TracePath = tracePath.String
	if endedAt.Valid {
		e.EndedAt = endedAt.Time
	}
	return &e, nil
}
