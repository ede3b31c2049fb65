// Package ports defines the interfaces (driven and driving ports)
// for branchbar following hexagonal architecture principles.
// These interfaces define the contracts between the core and
// external infrastructure.
package ports

import (
	"context"

	"github.com/xvierd/branchbar/internal/domain"
)

// SelectionStore persists the selected repository path.
// This is a driven port (implemented by adapters).
type SelectionStore interface {
	// Load returns the stored path, or "" when nothing is stored.
	Load(ctx context.Context) (string, error)

	// Save stores path as the selected repository.
	Save(ctx context.Context, path string) error

	// Evict removes the stored path.
	Evict(ctx context.Context) error
}

// RecentRepositoryStore remembers previously selected repositories.
// This is a driven port (implemented by adapters).
type RecentRepositoryStore interface {
	// Touch records a selection of path.
	Touch(ctx context.Context, path string) error

	// List returns recent repositories, most recently selected first.
	List(ctx context.Context, limit int) ([]domain.RecentRepository, error)

	// Search fuzzy-matches query against recent repository paths.
	Search(ctx context.Context, query string, limit int) ([]domain.RecentRepository, error)

	// Remove forgets path.
	Remove(ctx context.Context, path string) error
}

// Storage is the combined persistence interface.
// This is a driven port (implemented by adapters).
type Storage interface {
	// Selection provides access to the selected repository.
	Selection() SelectionStore

	// Recent provides access to recent repositories.
	Recent() RecentRepositoryStore

	// Close closes the storage connection.
	Close() error

	// Migrate runs database migrations.
	Migrate() error
}
