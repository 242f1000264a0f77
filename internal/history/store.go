package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one completed pipeline run.
type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Request   string    `json:"request"`
	Action    string    `json:"action,omitempty"`
	Target    string    `json:"target,omitempty"`
	Stage     string    `json:"stage"`
	Allowed   bool      `json:"allowed"`
	Success   bool      `json:"success"`
	Rule      string    `json:"rule,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id      TEXT PRIMARY KEY,
	ts      TEXT NOT NULL,
	request TEXT NOT NULL,
	action  TEXT NOT NULL DEFAULT '',
	target  TEXT NOT NULL DEFAULT '',
	stage   TEXT NOT NULL,
	allowed INTEGER NOT NULL,
	success INTEGER NOT NULL,
	rule    TEXT NOT NULL DEFAULT '',
	detail  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(ts DESC);`

// Store persists pipeline runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the history database at path, creating the schema if needed.
// ":memory:" opens an in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DefaultPath returns ~/.sysward/history.db.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".sysward", "history.db")
	}
	return filepath.Join(home, ".sysward", "history.db")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a run record. A missing timestamp is stamped with the
// current UTC time.
func (s *Store) Add(ctx context.Context, r Record) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, ts, request, action, target, stage, allowed, success, rule, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.Request,
		r.Action,
		r.Target,
		r.Stage,
		boolInt(r.Allowed),
		boolInt(r.Success),
		r.Rule,
		r.Detail,
	)
	if err != nil {
		return fmt.Errorf("inserting run record: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, request, action, target, stage, allowed, success, rule, detail
		 FROM runs ORDER BY ts DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ts string
		var allowed, success int
		if err := rows.Scan(&r.ID, &ts, &r.Request, &r.Action, &r.Target, &r.Stage, &allowed, &success, &r.Rule, &r.Detail); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		r.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing run timestamp %q: %w", ts, err)
		}
		r.Allowed = allowed != 0
		r.Success = success != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
