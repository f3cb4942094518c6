// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal persists every event cvpc sees — received by the agent
// or submitted through the HTTP API — in a SQLite database, and exports
// the journal to YAML or JSON.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cvpc/internal/event"
	"cvpc/pkg/types"
)

const (
	dbFile       = "cvpc.db"
	defaultLimit = 20
	maxLimit     = 1000

	// timeLayout is fixed-width so received_at orders lexicographically;
	// RFC3339Nano trims trailing zeros and breaks that.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Sources recorded with each journaled event.
const (
	SourceAgent = "agent"
	SourceAPI   = "api"
)

// Entry is one journaled event row.
type Entry struct {
	ID         string    `json:"id" yaml:"id"`
	Type       string    `json:"type" yaml:"type"`
	Data       any       `json:"data" yaml:"data"`
	Source     string    `json:"source" yaml:"source"`
	ReceivedAt time.Time `json:"received_at" yaml:"received_at"`
}

// Store manages the journal SQLite database.
type Store struct {
	db  *sql.DB
	dir string
}

// Open opens or creates the journal database at dir/cvpc.db, creating the
// schema if it does not exist.
func Open(cfg types.JournalConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = types.DefaultJournalDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			data TEXT,
			source TEXT NOT NULL,
			received_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type)`,
		`CREATE INDEX IF NOT EXISTS idx_events_received_at ON events(received_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Append journals one event and returns its assigned ID. The payload is
// stored as JSON text.
func (s *Store) Append(ctx context.Context, ev event.Event, source string) (string, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return "", fmt.Errorf("marshaling %q payload: %w", ev.Type, err)
	}

	id := event.NewID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, type, data, source, received_at) VALUES (?, ?, ?, ?, ?)`,
		id, ev.Type, string(data), source, time.Now().UTC().Format(timeLayout))
	if err != nil {
		return "", fmt.Errorf("inserting event: %w", err)
	}
	return id, nil
}

// Recent returns the newest events, newest first. An empty eventType
// matches all types. A non-positive limit uses the default (20); limits
// are capped at 1000.
func (s *Store) Recent(ctx context.Context, eventType string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	query := `SELECT id, type, data, source, received_at FROM events`
	args := []any{}
	if eventType != "" {
		query += ` WHERE type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY received_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var data, receivedAt string
		if err := rows.Scan(&e.ID, &e.Type, &data, &e.Source, &receivedAt); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		if data != "" {
			if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
				return nil, fmt.Errorf("unmarshaling %s payload: %w", e.ID, err)
			}
		}
		e.ReceivedAt, err = time.Parse(timeLayout, receivedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing %s timestamp: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns the journaled event count per type.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM events GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("scanning stats row: %w", err)
		}
		stats[eventType] = count
	}
	return stats, rows.Err()
}
