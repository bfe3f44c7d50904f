// Package sqlite stores proposals, chapters, criteria and AI settings in a
// single SQLite file for local single-user installs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB is an open SQLite database with the schema applied
type DB struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time avoids SQLITE_BUSY under concurrent autosaves
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &DB{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

// Ping checks the database is usable
func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *DB) Close() error {
	return s.db.Close()
}

func (s *DB) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS proposals (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			summary JSON NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chapters (
			id TEXT PRIMARY KEY,
			proposal_id TEXT NOT NULL REFERENCES proposals(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			user_input TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			citations JSON NOT NULL DEFAULT '[]',
			history JSON NOT NULL DEFAULT '[]',
			template_key TEXT NOT NULL DEFAULT '',
			reviewer_questions TEXT NOT NULL DEFAULT '',
			strengthening_suggestions TEXT NOT NULL DEFAULT '',
			gap_check_result TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chapters_proposal ON chapters(proposal_id, position);`,
		`CREATE TABLE IF NOT EXISTS scoring_criteria (
			scope_id TEXT PRIMARY KEY,
			criteria JSON NOT NULL DEFAULT '[]',
			updated_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ai_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			provider TEXT NOT NULL,
			tone TEXT NOT NULL,
			gemini_model TEXT NOT NULL DEFAULT '',
			gemini_base_url TEXT NOT NULL DEFAULT '',
			openai_model TEXT NOT NULL DEFAULT '',
			openai_base_url TEXT NOT NULL DEFAULT '',
			sealed_keys BLOB,
			updated_at TIMESTAMP NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func marshalList(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

func unmarshalJSON(data string, v any) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}
