// Package storage provides SQLite implementations of the storage ports.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/xvierd/branchbar/internal/ports"
	_ "modernc.org/sqlite"
)

// memoryDSN opens a private in-memory database.
const memoryDSN = ":memory:"

// sqliteStorage implements the ports.Storage interface using SQLite.
type sqliteStorage struct {
	db         *sql.DB
	selection  *selectionRepository
	recentRepo *recentRepository
}

// Ensure sqliteStorage implements ports.Storage.
var _ ports.Storage = (*sqliteStorage)(nil)

// New creates a new SQLite storage instance.
func New(dbPath string) (ports.Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to :memory: would get its own empty database.
	if dbPath == memoryDSN {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	storage := &sqliteStorage{
		db:         db,
		selection:  newSelectionRepository(db),
		recentRepo: newRecentRepository(db),
	}

	if err := storage.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

// NewMemory creates a new in-memory SQLite storage instance. Nothing outlives
// the process.
func NewMemory() (ports.Storage, error) {
	return New(memoryDSN)
}

// Selection returns the selected repository store.
func (s *sqliteStorage) Selection() ports.SelectionStore {
	return s.selection
}

// Recent returns the recent repository store.
func (s *sqliteStorage) Recent() ports.RecentRepositoryStore {
	return s.recentRepo
}

// Close closes the database connection.
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}

// Migrate creates the database schema.
func (s *sqliteStorage) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS recent_repositories (
		path TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		last_selected_at DATETIME NOT NULL,
		select_count INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_recent_last_selected ON recent_repositories(last_selected_at);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}
