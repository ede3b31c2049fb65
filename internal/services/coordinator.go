// Package services contains the application use cases. The Coordinator owns
// the selected repository and reconciles resolution results into its state.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xvierd/branchbar/internal/display"
	"github.com/xvierd/branchbar/internal/domain"
	"github.com/xvierd/branchbar/internal/logging"
	"github.com/xvierd/branchbar/internal/ports"
)

// Defaults used when CoordinatorConfig leaves a field unset.
const (
	DefaultInterval = 5 * time.Second
	DefaultMaxWidth = 28
)

// resultBuffer bounds completion messages waiting for the loop.
const resultBuffer = 16

// CoordinatorConfig holds refresh and display settings.
type CoordinatorConfig struct {
	Interval time.Duration
	MaxWidth int
}

// cycleResult is the completion message of one resolution cycle.
type cycleResult struct {
	selectionID string
	seq         uint64
	state       domain.BranchState
	log         *logging.ScopedLogger
}

// Coordinator owns the single repository slot and its branch state.
// Resolution cycles run on their own goroutines; only the loop started by
// Start applies their results.
type Coordinator struct {
	resolver ports.RepositoryResolver
	storage  ports.Storage
	log      *logging.ScopedLogger
	cfg      CoordinatorConfig

	watcher  ports.HeadWatcher
	notifier ports.Notifier

	mu         sync.Mutex
	current    *domain.RepositorySelection
	state      domain.BranchState
	updatedAt  time.Time
	seq        uint64
	appliedSeq uint64
	watchedID  string
	changed    chan struct{}
	onChange   func(domain.Snapshot)

	watchMu sync.Mutex

	// selectMu orders persistence with the in-memory slot so the stored
	// path always matches the last adopted selection.
	selectMu sync.Mutex

	flights singleflight.Group
	results chan cycleResult

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
	stopOnce sync.Once
}

// Ensure Coordinator implements MCPStateProvider.
var _ ports.MCPStateProvider = (*Coordinator)(nil)

// NewCoordinator creates a coordinator with no selection.
func NewCoordinator(resolver ports.RepositoryResolver, storage ports.Storage, cfg CoordinatorConfig, log *logging.ScopedLogger) *Coordinator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxWidth == 0 {
		cfg.MaxWidth = DefaultMaxWidth
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		resolver:  resolver,
		storage:   storage,
		log:       log,
		cfg:       cfg,
		state:     domain.Unselected(),
		updatedAt: time.Now(),
		changed:   make(chan struct{}),
		results:   make(chan cycleResult, resultBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetWatcher attaches a HEAD watcher, retargeted whenever a selection resolves.
func (c *Coordinator) SetWatcher(w ports.HeadWatcher) {
	c.watcher = w
}

// SetNotifier attaches the notifier used for branch changes.
func (c *Coordinator) SetNotifier(n ports.Notifier) {
	c.notifier = n
}

// SetOnChange sets the function called after every transition.
func (c *Coordinator) SetOnChange(fn func(domain.Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Start runs the refresh loop until ctx is done or Stop is called.
// Results of cycles launched before Start are applied once it runs.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop(ctx)
	c.log.Info("coordinator started", "interval", c.cfg.Interval)
}

// Stop ends the loop, stops the ticker and releases the watcher.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		if c.watcher != nil {
			c.watchMu.Lock()
			c.watcher.Unwatch()
			c.watchMu.Unlock()
		}
		c.log.Info("coordinator stopped")
	})
}

func (c *Coordinator) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.RefreshNow()
		case res := <-c.results:
			c.apply(res)
		}
	}
}

// Select validates path and makes it the monitored repository.
// A path that is not a git work tree leaves the current selection untouched
// and returns an error matching domain.ErrNotARepository.
func (c *Coordinator) Select(ctx context.Context, path string) error {
	sel, err := domain.NewRepositorySelection(path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotARepository, err)
	}
	if !c.resolver.IsRepository(ctx, sel.Path) {
		c.log.Info("rejected selection", "path", sel.Path)
		return fmt.Errorf("%s: %w", sel.Path, domain.ErrNotARepository)
	}

	c.selectMu.Lock()
	defer c.selectMu.Unlock()

	if c.storage != nil {
		if err := c.storage.Selection().Save(ctx, sel.Path); err != nil {
			c.log.Error("failed to persist selection", "path", sel.Path, "error", err)
		}
		if err := c.storage.Recent().Touch(ctx, sel.Path); err != nil {
			c.log.Warn("failed to record recent repository", "path", sel.Path, "error", err)
		}
	}

	c.adopt(sel)
	c.log.Info("selected repository", "path", sel.Path, "id", sel.ID)
	return nil
}

// Clear removes the selection and evicts the persisted value.
func (c *Coordinator) Clear(ctx context.Context) {
	c.selectMu.Lock()
	defer c.selectMu.Unlock()

	c.mu.Lock()
	had := c.current != nil
	c.current = nil
	c.appliedSeq = 0
	c.watchedID = ""
	snap, fn := c.transitionLocked(domain.Unselected())
	c.mu.Unlock()

	if c.storage != nil {
		if err := c.storage.Selection().Evict(ctx); err != nil {
			c.log.Error("failed to evict selection", "error", err)
		}
	}
	if c.watcher != nil {
		c.watchMu.Lock()
		c.watcher.Unwatch()
		c.watchMu.Unlock()
	}
	if had {
		c.log.Info("cleared selection")
	}
	if fn != nil {
		fn(snap)
	}
}

// RestoreFromPersistence validates a stored path and selects it without
// saving it again. An invalid path is evicted. It reports whether the path
// was adopted.
func (c *Coordinator) RestoreFromPersistence(ctx context.Context, path string) bool {
	sel, err := domain.NewRepositorySelection(path)
	valid := err == nil && c.resolver.IsRepository(ctx, sel.Path)

	c.selectMu.Lock()
	defer c.selectMu.Unlock()

	if valid {
		c.adopt(sel)
		c.log.Info("restored repository", "path", sel.Path)
		return true
	}

	c.log.Warn("evicting stored repository", "path", path)
	if c.storage != nil {
		if err := c.storage.Selection().Evict(ctx); err != nil {
			c.log.Error("failed to evict selection", "error", err)
		}
	}
	return false
}

// Restore loads the stored path, if any, and restores it.
func (c *Coordinator) Restore(ctx context.Context) bool {
	if c.storage == nil {
		return false
	}
	path, err := c.storage.Selection().Load(ctx)
	if err != nil {
		c.log.Error("failed to load selection", "error", err)
		return false
	}
	if path == "" {
		return false
	}
	return c.RestoreFromPersistence(ctx, path)
}

// RefreshNow launches a resolution cycle for the current selection without
// waiting for it. Without a selection the state is reset to Unselected.
func (c *Coordinator) RefreshNow() {
	c.mu.Lock()
	if c.current == nil {
		snap, fn := c.transitionLocked(domain.Unselected())
		c.mu.Unlock()
		if fn != nil {
			fn(snap)
		}
		return
	}
	c.mu.Unlock()
	c.launch()
}

// adopt installs sel, shows Resolving and launches the first cycle.
func (c *Coordinator) adopt(sel *domain.RepositorySelection) {
	c.mu.Lock()
	c.current = sel
	c.appliedSeq = 0
	c.forceTransitionLocked(domain.Resolving())
	snap, fn := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
	c.launch()
}

// launch starts one cycle tagged with the current selection.
func (c *Coordinator) launch() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	c.seq++
	id, path, seq := c.current.ID, c.current.Path, c.seq
	c.mu.Unlock()

	log := c.log.With("selection", id, "seq", seq)
	go func() {
		v, _, shared := c.flights.Do(id, func() (any, error) {
			return c.resolve(path, log), nil
		})
		if shared {
			log.Debug("joined in-flight resolution", "path", path)
		}
		res := cycleResult{selectionID: id, seq: seq, state: v.(domain.BranchState), log: log}
		select {
		case c.results <- res:
		case <-c.ctx.Done():
		}
	}()
}

// resolve maps a resolution into a state. Failures become Unavailable.
func (c *Coordinator) resolve(path string, log *logging.ScopedLogger) domain.BranchState {
	state, err := c.resolver.ResolveBranch(c.ctx, path)
	if err == nil {
		return state
	}

	reason := err.Error()
	var resErr *domain.ResolutionError
	if errors.As(err, &resErr) {
		reason = resErr.Reason()
	}
	log.Debug("resolution failed", "path", path, "reason", reason)
	return domain.Unavailable(reason)
}

// apply installs a cycle result unless it is stale.
func (c *Coordinator) apply(res cycleResult) {
	c.mu.Lock()
	if c.current == nil || c.current.ID != res.selectionID {
		c.mu.Unlock()
		res.log.Debug("discarded result for previous selection")
		return
	}
	if res.seq < c.appliedSeq {
		applied := c.appliedSeq
		c.mu.Unlock()
		res.log.Debug("discarded out-of-order result", "applied", applied)
		return
	}
	c.appliedSeq = res.seq

	prev := c.state
	name, id, path := c.current.DisplayName(), c.current.ID, c.current.Path
	watch := c.watcher != nil && res.state.IsResolved() && c.watchedID != id
	if watch {
		c.watchedID = id
	}
	snap, fn := c.transitionLocked(res.state)
	c.mu.Unlock()

	if watch {
		go c.retarget(id, path)
	}
	if c.notifier != nil && prev.IsResolved() && res.state.IsResolved() && prev != res.state {
		if err := c.notifier.NotifyBranchChange(name, prev.Ref(), res.state.Ref()); err != nil {
			c.log.Warn("failed to send notification", "error", err)
		}
	}
	if fn != nil {
		fn(snap)
	}
}

// retarget points the watcher at the selection identified by id.
func (c *Coordinator) retarget(id, path string) {
	if c.watcher == nil {
		return
	}
	c.watchMu.Lock()
	defer c.watchMu.Unlock()

	if !c.isCurrent(id) || c.ctx.Err() != nil {
		return
	}
	if err := c.watcher.Watch(c.ctx, path); err != nil {
		c.log.Warn("failed to watch repository", "path", path, "error", err)
		c.mu.Lock()
		if c.watchedID == id {
			c.watchedID = ""
		}
		c.mu.Unlock()
		return
	}
	// The selection may have moved on while Watch ran.
	if !c.isCurrent(id) {
		c.watcher.Unwatch()
	}
}

func (c *Coordinator) isCurrent(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil && c.current.ID == id
}

// transitionLocked sets state and returns the snapshot and callback to invoke,
// or a nil callback when nothing changed. Callers must hold c.mu.
func (c *Coordinator) transitionLocked(state domain.BranchState) (domain.Snapshot, func(domain.Snapshot)) {
	if c.state == state {
		return domain.Snapshot{}, nil
	}
	c.forceTransitionLocked(state)
	return c.snapshotLocked(), c.onChange
}

func (c *Coordinator) forceTransitionLocked(state domain.BranchState) {
	c.state = state
	c.updatedAt = time.Now()
	close(c.changed)
	c.changed = make(chan struct{})
}

// Snapshot returns the current selection, state and label.
func (c *Coordinator) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Selection: c.current,
		State:     c.state,
		Label:     display.Format(c.state, c.current.DisplayName(), c.cfg.MaxWidth),
		UpdatedAt: c.updatedAt,
	}
}

// WaitSettled blocks until the state is no longer Resolving.
func (c *Coordinator) WaitSettled(ctx context.Context) (domain.Snapshot, error) {
	for {
		c.mu.Lock()
		snap, changed := c.snapshotLocked(), c.changed
		c.mu.Unlock()

		if snap.State.Kind != domain.StateResolving {
			return snap, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// RecentRepositories returns previously selected repositories.
func (c *Coordinator) RecentRepositories(ctx context.Context, limit int) ([]domain.RecentRepository, error) {
	if c.storage == nil {
		return nil, nil
	}
	return c.storage.Recent().List(ctx, limit)
}

// SearchRecentRepositories fuzzy-matches query against recent repositories.
func (c *Coordinator) SearchRecentRepositories(ctx context.Context, query string, limit int) ([]domain.RecentRepository, error) {
	if c.storage == nil {
		return nil, nil
	}
	return c.storage.Recent().Search(ctx, query, limit)
}
