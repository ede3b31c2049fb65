package services

import (
	"context"
	"errors"
	"sync"

	"github.com/xvierd/branchbar/internal/domain"
	"github.com/xvierd/branchbar/internal/ports"
)

// fakeResolver serves canned states. A gated path blocks in ResolveBranch
// until its gate is closed.
type fakeResolver struct {
	mu     sync.Mutex
	repos  map[string]bool
	states map[string]domain.BranchState
	errs   map[string]error
	gates  map[string]chan struct{}
	calls  map[string]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		repos:  make(map[string]bool),
		states: make(map[string]domain.BranchState),
		errs:   make(map[string]error),
		gates:  make(map[string]chan struct{}),
		calls:  make(map[string]int),
	}
}

func (f *fakeResolver) addRepo(path string, state domain.BranchState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos[path] = true
	f.states[path] = state
	delete(f.errs, path)
}

func (f *fakeResolver) setState(path string, state domain.BranchState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[path] = state
	delete(f.errs, path)
}

func (f *fakeResolver) fail(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[path] = err
}

// gate makes ResolveBranch(path) block until the returned channel is closed.
func (f *fakeResolver) gate(path string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[path] = ch
	return ch
}

func (f *fakeResolver) resolveCalls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeResolver) IsRepository(_ context.Context, path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repos[path]
}

func (f *fakeResolver) ResolveBranch(ctx context.Context, path string) (domain.BranchState, error) {
	f.mu.Lock()
	f.calls[path]++
	gate := f.gates[path]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.BranchState{}, &domain.ResolutionError{Path: path, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[path]; err != nil {
		return domain.BranchState{}, &domain.ResolutionError{Path: path, Err: err}
	}
	return f.states[path], nil
}

func (f *fakeResolver) GitDir(_ context.Context, path string) (string, error) {
	return path + "/.git", nil
}

// memStorage is an in-memory ports.Storage.
type memStorage struct {
	selection *memSelection
	recent    *memRecent
}

func newMemStorage() *memStorage {
	return &memStorage{selection: &memSelection{}, recent: &memRecent{}}
}

func (m *memStorage) Selection() ports.SelectionStore    { return m.selection }
func (m *memStorage) Recent() ports.RecentRepositoryStore { return m.recent }
func (m *memStorage) Close() error                        { return nil }
func (m *memStorage) Migrate() error                      { return nil }

type memSelection struct {
	mu      sync.Mutex
	path    string
	saves   int
	evicts  int
	saveErr error
}

func (s *memSelection) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path, nil
}

func (s *memSelection) Save(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.path = path
	return nil
}

func (s *memSelection) Evict(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evicts++
	s.path = ""
	return nil
}

func (s *memSelection) stored() (path string, saves, evicts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path, s.saves, s.evicts
}

type memRecent struct {
	mu      sync.Mutex
	touched []string

	// holdPath makes Touch(holdPath) signal held and wait for release.
	holdPath string
	held     chan struct{}
	release  chan struct{}
}

// hold makes the next Touch of path block until the returned release is closed.
func (r *memRecent) hold(path string) (held <-chan struct{}, release chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holdPath = path
	r.held = make(chan struct{})
	r.release = make(chan struct{})
	return r.held, r.release
}

func (r *memRecent) Touch(_ context.Context, path string) error {
	r.mu.Lock()
	if path == r.holdPath && r.release != nil {
		held, release := r.held, r.release
		r.holdPath = ""
		r.mu.Unlock()
		close(held)
		<-release
		r.mu.Lock()
	}
	defer r.mu.Unlock()
	r.touched = append(r.touched, path)
	return nil
}

func (r *memRecent) List(_ context.Context, limit int) ([]domain.RecentRepository, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RecentRepository
	for i := len(r.touched) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, domain.RecentRepository{Path: r.touched[i]})
	}
	return out, nil
}

func (r *memRecent) Search(ctx context.Context, _ string, limit int) ([]domain.RecentRepository, error) {
	return r.List(ctx, limit)
}

func (r *memRecent) Remove(context.Context, string) error {
	return errors.New("not supported")
}

// fakeWatcher records the paths it was pointed at.
type fakeWatcher struct {
	mu       sync.Mutex
	watched  []string
	unwatch  int
	current  string
	watchErr error
}

func (w *fakeWatcher) Watch(_ context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watchErr != nil {
		return w.watchErr
	}
	w.watched = append(w.watched, path)
	w.current = path
	return nil
}

func (w *fakeWatcher) Unwatch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unwatch++
	w.current = ""
}

func (w *fakeWatcher) Close() error { return nil }

func (w *fakeWatcher) target() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// fakeNotifier records branch change notifications.
type fakeNotifier struct {
	mu      sync.Mutex
	changes []string
}

func (n *fakeNotifier) NotifyBranchChange(repo, from, to string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, repo+":"+from+"->"+to)
	return nil
}

func (n *fakeNotifier) NotifyNotARepository(string) error { return nil }

func (n *fakeNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.changes...)
}
