package ports

import (
	"context"

	"github.com/xvierd/branchbar/internal/domain"
)

// CommandRunner executes the git binary with discrete arguments.
// This is a driven port (implemented by adapters).
type CommandRunner interface {
	// Run executes git in dir and returns the trimmed output on exit 0.
	// Any other outcome is reported as *domain.ExecutionError.
	Run(ctx context.Context, dir string, args ...string) (domain.CommandResult, error)
}

// RepositoryResolver determines repository validity and branch state.
// This is a driven port (implemented by adapters).
type RepositoryResolver interface {
	// IsRepository reports whether path is inside a git work tree. It never fails.
	IsRepository(ctx context.Context, path string) bool

	// ResolveBranch returns a Branch or Detached state, or a *domain.ResolutionError.
	ResolveBranch(ctx context.Context, path string) (domain.BranchState, error)

	// GitDir returns the absolute git directory for the work tree at path.
	GitDir(ctx context.Context, path string) (string, error)
}

// HeadWatcher signals HEAD changes in the selected repository between ticks.
// This is a driven port (implemented by adapters).
type HeadWatcher interface {
	// Watch retargets the watcher at the repository at path.
	Watch(ctx context.Context, path string) error

	// Unwatch stops watching the current repository, if any.
	Unwatch()

	// Close releases the watcher.
	Close() error
}
