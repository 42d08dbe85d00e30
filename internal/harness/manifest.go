// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harness

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/ablation-bench/pkg/types"
)

// ManifestFile is the SQLite database inside a run directory that holds
// per-record task state.
const ManifestFile = "manifest.db"

// TaskState is one record's position in the run lifecycle.
type TaskState string

const (
	StatePending   TaskState = "PENDING"
	StateRunning   TaskState = "RUNNING"
	StateSucceeded TaskState = "SUCCEEDED"
	StateFailed    TaskState = "FAILED"
)

// Manifest tracks per-record progress for one run directory, so a
// re-run of the same directory resumes instead of repeating paid work.
// Single writer: the orchestrator.
type Manifest struct {
	db *sql.DB
}

// OpenManifest opens or creates the manifest database in runDir.
func OpenManifest(runDir string) (*Manifest, error) {
	dbPath := filepath.Join(runDir, ManifestFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	m := &Manifest{db: db}
	if err := m.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating manifest schema: %w", err)
	}
	return m, nil
}

// Close releases the database connection.
func (m *Manifest) Close() error {
	return m.db.Close()
}

func (m *Manifest) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			error_class TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			completion_tokens INTEGER NOT NULL DEFAULT 0,
			total_tokens INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL DEFAULT '',
			finished_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_state ON tasks(state)`,
	}
	for _, stmt := range statements {
		if _, err := m.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Begin marks a record RUNNING and bumps its attempt counter. Error
// details from a previous attempt are cleared.
func (m *Manifest) Begin(ctx context.Context, id string) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO tasks (id, state, attempts, started_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT(id) DO UPDATE SET
			state=excluded.state, attempts=tasks.attempts+1,
			started_at=excluded.started_at, error_class='', error=''`,
		id, StateRunning, now())
	if err != nil {
		return fmt.Errorf("marking %s running: %w", id, err)
	}
	return nil
}

// Succeed marks a record SUCCEEDED with the tokens it consumed.
func (m *Manifest) Succeed(ctx context.Context, id string, usage types.TokenUsage) error {
	_, err := m.db.ExecContext(ctx,
		`UPDATE tasks SET state=?, prompt_tokens=?, completion_tokens=?,
			total_tokens=?, finished_at=? WHERE id=?`,
		StateSucceeded, usage.PromptTokens, usage.CompletionTokens,
		usage.TotalTokens, now(), id)
	if err != nil {
		return fmt.Errorf("marking %s succeeded: %w", id, err)
	}
	return nil
}

// Fail marks a record FAILED with its error class and message, plus any
// tokens the failed attempt still consumed.
func (m *Manifest) Fail(ctx context.Context, id, class, msg string, usage types.TokenUsage) error {
	_, err := m.db.ExecContext(ctx,
		`UPDATE tasks SET state=?, error_class=?, error=?, prompt_tokens=?,
			completion_tokens=?, total_tokens=?, finished_at=? WHERE id=?`,
		StateFailed, class, msg, usage.PromptTokens, usage.CompletionTokens,
		usage.TotalTokens, now(), id)
	if err != nil {
		return fmt.Errorf("marking %s failed: %w", id, err)
	}
	return nil
}

// Succeeded returns the ids of records already completed, for resume
// skipping.
func (m *Manifest) Succeeded(ctx context.Context) (map[string]struct{}, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id FROM tasks WHERE state=?`, StateSucceeded)
	if err != nil {
		return nil, fmt.Errorf("querying succeeded tasks: %w", err)
	}
	defer rows.Close()

	done := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning task id: %w", err)
		}
		done[id] = struct{}{}
	}
	return done, rows.Err()
}

// TaskFailure is one failed record and why, as listed in the report.
type TaskFailure struct {
	ID    string
	Class string
	Err   string
}

// Failures returns the records currently FAILED, ordered by id.
func (m *Manifest) Failures(ctx context.Context) ([]TaskFailure, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, error_class, error FROM tasks WHERE state=? ORDER BY id`,
		StateFailed)
	if err != nil {
		return nil, fmt.Errorf("querying failed tasks: %w", err)
	}
	defer rows.Close()

	var failures []TaskFailure
	for rows.Next() {
		var f TaskFailure
		if err := rows.Scan(&f.ID, &f.Class, &f.Err); err != nil {
			return nil, fmt.Errorf("scanning task failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// Usage sums the token usage recorded across every record in the run,
// including failed attempts and records completed by earlier runs of
// the same directory.
func (m *Manifest) Usage(ctx context.Context) (types.TokenUsage, error) {
	var u types.TokenUsage
	err := m.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0),
			COALESCE(SUM(total_tokens), 0) FROM tasks`,
	).Scan(&u.PromptTokens, &u.CompletionTokens, &u.TotalTokens)
	if err != nil {
		return types.TokenUsage{}, fmt.Errorf("summing token usage: %w", err)
	}
	return u, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
