// Package journal records tool invocations in a local SQLite database.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Entry is one recorded tool call. Results are not stored, only their size.
type Entry struct {
	ID         string          `json:"id"`
	Tool       string          `json:"tool"`
	Status     string          `json:"status"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	Error      string          `json:"error,omitempty"`
	ResultSize int             `json:"resultSize"`
	DurationMS int64           `json:"durationMs"`
	ExecutedAt time.Time       `json:"executedAt"`
}

// Journal is safe for concurrent use.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &Journal{db: db}
	if err := j.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	return j, nil
}

func (j *Journal) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tool_invocations (
		id TEXT PRIMARY KEY,
		tool TEXT NOT NULL,
		status TEXT NOT NULL,
		arguments TEXT,
		error_message TEXT,
		result_size INTEGER,
		duration_ms INTEGER,
		executed_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tool_invocations_tool ON tool_invocations(tool);
	CREATE INDEX IF NOT EXISTS idx_tool_invocations_executed_at ON tool_invocations(executed_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record stores e, assigning an id and timestamp when unset. Secret-looking
// argument values are redacted before they are written.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO tool_invocations (id, tool, status, arguments, error_message, result_size, duration_ms, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Tool, e.Status, string(redact(e.Arguments)), e.Error, e.ResultSize, e.DurationMS, e.ExecutedAt)
	return err
}

// Recent returns up to limit entries, newest first. An empty tool matches all.
func (j *Journal) Recent(ctx context.Context, tool string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, tool, status, arguments, error_message, result_size, duration_ms, executed_at
		FROM tool_invocations`
	args := []any{}
	if tool != "" {
		query += ` WHERE tool = ?`
		args = append(args, tool)
	}
	query += ` ORDER BY executed_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			rawArgs  sql.NullString
			errorMsg sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Tool, &e.Status, &rawArgs, &errorMsg, &e.ResultSize, &e.DurationMS, &e.ExecutedAt); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		if rawArgs.Valid && rawArgs.String != "" {
			e.Arguments = json.RawMessage(rawArgs.String)
		}
		e.Error = errorMsg.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

const redacted = "[REDACTED]"

func redact(args json.RawMessage) json.RawMessage {
	if len(args) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return args
	}
	changed := false
	for k := range m {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "secret") || strings.Contains(lk, "token") || strings.Contains(lk, "password") {
			m[k] = redacted
			changed = true
		}
	}
	if !changed {
		return args
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}
