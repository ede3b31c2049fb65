package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/xvierd/branchbar/internal/domain"
	"github.com/xvierd/branchbar/internal/logging"
)

// requireGit skips the test when no git binary is installed.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(DefaultBinary); err != nil {
		t.Skip("git binary not available")
	}
}

// isolate stops git from discovering a repository above dir.
func isolate(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
}

// newRepo creates a repository on branch main with one commit.
func newRepo(t *testing.T) (string, *gogit.Repository, plumbing.Hash) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "repo")
	isolate(t, dir)

	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	if err != nil {
		t.Fatalf("failed to init git repo: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("fixture\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add("README.md"); err != nil {
		t.Fatalf("failed to add file: %v", err)
	}

	commit, err := worktree.Commit("Initial commit", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	return dir, repo, commit
}

func newTestResolver() *Resolver {
	return NewResolver(NewRunner(DefaultBinary, 10*time.Second, logging.NopLogger()))
}

func resolve(t *testing.T, r *Resolver, path string) domain.BranchState {
	t.Helper()
	state, err := r.ResolveBranch(context.Background(), path)
	if err != nil {
		t.Fatalf("ResolveBranch(%s) error = %v", path, err)
	}
	return state
}
