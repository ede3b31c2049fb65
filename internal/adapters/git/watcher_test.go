package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xvierd/branchbar/internal/logging"
)

func TestHeadWatcher_SignalsOnHeadChange(t *testing.T) {
	requireGit(t)
	dir, _, _ := newRepo(t)

	changed := make(chan struct{}, 8)
	w := NewHeadWatcher(newTestResolver(), logging.NopLogger())
	w.SetOnChange(func() { changed <- struct{}{} })
	defer func() { _ = w.Close() }()

	require.NoError(t, w.Watch(context.Background(), dir))
	require.NotEmpty(t, w.WatchedDir())

	// Unrelated files in the git directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "description"), []byte("x\n"), 0644))
	select {
	case <-changed:
		t.Fatal("non-HEAD write should not signal")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref: refs/heads/other\n"), 0644))
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("HEAD write should signal")
	}
}

func TestHeadWatcher_Unwatch(t *testing.T) {
	requireGit(t)
	dir, _, _ := newRepo(t)

	w := NewHeadWatcher(newTestResolver(), logging.NopLogger())
	require.NoError(t, w.Watch(context.Background(), dir))
	w.Unwatch()
	assert.Empty(t, w.WatchedDir())

	// Safe to call twice.
	w.Unwatch()
	require.NoError(t, w.Close())
}

func TestHeadWatcher_NotARepository(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	isolate(t, dir)

	w := NewHeadWatcher(newTestResolver(), logging.NopLogger())
	assert.Error(t, w.Watch(context.Background(), dir))
	assert.Empty(t, w.WatchedDir())
}
