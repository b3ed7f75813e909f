// Package sqlite persists accounts, work orders and recordings.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	email         TEXT,
	phone         TEXT,
	user_type     INTEGER NOT NULL,
	created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS work_orders (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	ticket_id  TEXT UNIQUE NOT NULL,
	creator_id INTEGER NOT NULL,
	status     TEXT DEFAULT 'open',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	closed_at  DATETIME,
	FOREIGN KEY (creator_id) REFERENCES users (id)
);
CREATE TABLE IF NOT EXISTS recordings (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	ticket_id TEXT NOT NULL,
	data_type TEXT NOT NULL,
	payload   BLOB NOT NULL,
	ts        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS recordings_ticket ON recordings (ticket_id, ts);
`

// Store implements the dispatcher's Authenticator, WorkOrders and Recorder.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("module", "storage").Str("path", path).Msg("database ready")
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }
