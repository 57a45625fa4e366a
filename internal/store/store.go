// Package store is the durable trigger journal: the pending reminder set
// that survives daemon restarts, and a log of delivery attempts.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the journal database.
type Store struct {
	DB *sql.DB
}

// Open opens (creating if needed) the journal at path. Use ":memory:" in
// tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}
	s := &Store{DB: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS triggers (
		id TEXT PRIMARY KEY,
		fire_at INTEGER NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		state TEXT CHECK(state IN ('pending', 'delivered', 'missed')) NOT NULL DEFAULT 'pending',
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_triggers_state_fire_at ON triggers(state, fire_at);

	CREATE TABLE IF NOT EXISTS deliveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trigger_id TEXT NOT NULL,
		sink TEXT NOT NULL,
		delivered_at INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_deliveries_trigger ON deliveries(trigger_id);
	`
	_, err := s.DB.ExecContext(ctx, schema)
	return err
}
