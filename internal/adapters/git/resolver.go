package git

import (
	"context"

	"github.com/xvierd/branchbar/internal/domain"
	"github.com/xvierd/branchbar/internal/ports"
)

// detachedSentinel is what `rev-parse --abbrev-ref HEAD` prints when HEAD is
// not on a branch.
const detachedSentinel = "HEAD"

// Resolver implements ports.RepositoryResolver on top of a CommandRunner.
type Resolver struct {
	runner ports.CommandRunner
}

// Ensure Resolver implements ports.RepositoryResolver.
var _ ports.RepositoryResolver = (*Resolver)(nil)

// NewResolver creates a resolver using runner.
func NewResolver(runner ports.CommandRunner) *Resolver {
	return &Resolver{runner: runner}
}

// IsRepository reports whether path is inside a git work tree.
// Any failure, including a missing git binary, counts as "not a repository".
func (r *Resolver) IsRepository(ctx context.Context, path string) bool {
	res, err := r.runner.Run(ctx, path, "-C", path, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false
	}
	return res.Stdout == "true"
}

// ResolveBranch returns the checked-out branch, or the short commit hash when
// HEAD is detached.
func (r *Resolver) ResolveBranch(ctx context.Context, path string) (domain.BranchState, error) {
	res, err := r.runner.Run(ctx, path, "-C", path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return domain.BranchState{}, &domain.ResolutionError{Path: path, Err: err}
	}

	if res.Stdout != detachedSentinel {
		return domain.OnBranch(res.Stdout), nil
	}

	hash, err := r.runner.Run(ctx, path, "-C", path, "rev-parse", "--short", "HEAD")
	if err != nil {
		return domain.BranchState{}, &domain.ResolutionError{Path: path, Err: err}
	}
	return domain.Detached(hash.Stdout), nil
}

// GitDir returns the absolute git directory of the work tree at path.
// For linked worktrees this is the per-worktree directory holding HEAD.
func (r *Resolver) GitDir(ctx context.Context, path string) (string, error) {
	res, err := r.runner.Run(ctx, path, "-C", path, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", &domain.ResolutionError{Path: path, Err: err}
	}
	return res.Stdout, nil
}
