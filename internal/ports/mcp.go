package ports

import (
	"context"

	"github.com/xvierd/branchbar/internal/domain"
)

// MCPHandler defines the interface for MCP server operations.
// This is a driving port (called by the application layer).
type MCPHandler interface {
	// Start begins serving MCP requests.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the server.
	Stop() error

	// IsRunning returns true if the server is active.
	IsRunning() bool
}

// MCPStateProvider exposes the monitored repository to the MCP server.
// This is a driven port (implemented by the services layer).
type MCPStateProvider interface {
	// Snapshot returns the current selection, state and label.
	Snapshot() domain.Snapshot

	// Select validates and selects a repository.
	Select(ctx context.Context, path string) error

	// Clear removes the selection.
	Clear(ctx context.Context)

	// RefreshNow starts a resolution cycle without waiting for it.
	RefreshNow()

	// RecentRepositories returns previously selected repositories.
	RecentRepositories(ctx context.Context, limit int) ([]domain.RecentRepository, error)
}
