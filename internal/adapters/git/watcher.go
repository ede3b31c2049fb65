package git

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/xvierd/branchbar/internal/logging"
	"github.com/xvierd/branchbar/internal/ports"
)

// headFile is the file rewritten by checkout, switch and detach.
const headFile = "HEAD"

// HeadWatcher implements ports.HeadWatcher using fsnotify on the git directory.
// git replaces HEAD by renaming HEAD.lock, so the directory is watched rather
// than the file.
type HeadWatcher struct {
	resolver ports.RepositoryResolver
	log      *logging.ScopedLogger

	mu       sync.Mutex
	onChange func()
	watcher  *fsnotify.Watcher
	gitDir   string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Ensure HeadWatcher implements ports.HeadWatcher.
var _ ports.HeadWatcher = (*HeadWatcher)(nil)

// NewHeadWatcher creates a watcher that locates git directories via resolver.
func NewHeadWatcher(resolver ports.RepositoryResolver, log *logging.ScopedLogger) *HeadWatcher {
	return &HeadWatcher{resolver: resolver, log: log}
}

// SetOnChange sets the function called when HEAD changes.
func (w *HeadWatcher) SetOnChange(fn func()) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// Watch retargets the watcher at the repository at path.
func (w *HeadWatcher) Watch(ctx context.Context, path string) error {
	gitDir, err := w.resolver.GitDir(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to locate git directory: %w", err)
	}

	w.mu.Lock()
	same := w.watcher != nil && w.gitDir == gitDir
	w.mu.Unlock()
	if same {
		return nil
	}

	w.Unwatch()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(gitDir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to watch %s: %w", gitDir, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	w.mu.Lock()
	w.watcher = fw
	w.gitDir = gitDir
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(loopCtx, fw)

	w.log.Debug("watching HEAD", "git_dir", gitDir)
	return nil
}

// Unwatch stops watching the current repository, if any.
func (w *HeadWatcher) Unwatch() {
	w.mu.Lock()
	fw, cancel := w.watcher, w.cancel
	w.watcher, w.cancel, w.gitDir = nil, nil, ""
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if fw != nil {
		_ = fw.Close()
	}
	w.wg.Wait()
}

// Close releases the watcher.
func (w *HeadWatcher) Close() error {
	w.Unwatch()
	return nil
}

// WatchedDir returns the git directory currently watched, or "".
func (w *HeadWatcher) WatchedDir() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gitDir
}

func (w *HeadWatcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != headFile {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.mu.Lock()
			fn := w.onChange
			w.mu.Unlock()
			if fn != nil {
				fn()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}
