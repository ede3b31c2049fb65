package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// selectedRepositoryKey is the settings key holding the selected path.
const selectedRepositoryKey = "selected_repository"

// selectionRepository implements ports.SelectionStore on the settings table.
type selectionRepository struct {
	db *sql.DB
}

func newSelectionRepository(db *sql.DB) *selectionRepository {
	return &selectionRepository{db: db}
}

// Load returns the stored path, or "" when none is stored.
func (r *selectionRepository) Load(ctx context.Context) (string, error) {
	var path string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, selectedRepositoryKey).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load selected repository: %w", err)
	}
	return path, nil
}

// Save stores path as the selected repository.
func (r *selectionRepository) Save(ctx context.Context, path string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, selectedRepositoryKey, path, time.Now()); err != nil {
		return fmt.Errorf("failed to save selected repository: %w", err)
	}
	return nil
}

// Evict removes the stored path. Evicting when nothing is stored is not an error.
func (r *selectionRepository) Evict(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, selectedRepositoryKey); err != nil {
		return fmt.Errorf("failed to evict selected repository: %w", err)
	}
	return nil
}
