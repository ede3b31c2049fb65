package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xvierd/branchbar/internal/domain"
	"github.com/xvierd/branchbar/internal/logging"
)

const (
	repoA = "/work/alpha"
	repoB = "/work/beta"
)

// newTestCoordinator returns a started coordinator whose ticker never fires
// during a test.
func newTestCoordinator(t *testing.T, resolver *fakeResolver, store *memStorage) *Coordinator {
	t.Helper()
	c := NewCoordinator(resolver, store, CoordinatorConfig{Interval: time.Hour, MaxWidth: 28}, logging.NopLogger())
	c.Start(context.Background())
	t.Cleanup(c.Stop)
	return c
}

func settle(t *testing.T, c *Coordinator) domain.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := c.WaitSettled(ctx)
	require.NoError(t, err, "state never left Resolving")
	return snap
}

func eventuallyState(t *testing.T, c *Coordinator, want domain.BranchState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Snapshot().State == want
	}, 2*time.Second, 5*time.Millisecond, "state never became %s (last %s)", want, c.Snapshot().State)
}

func TestCoordinator_Initial(t *testing.T) {
	c := newTestCoordinator(t, newFakeResolver(), newMemStorage())

	snap := c.Snapshot()
	assert.False(t, snap.HasSelection())
	assert.Equal(t, domain.Unselected(), snap.State)
	assert.Equal(t, "No repo selected", snap.Label)
}

func TestCoordinator_Select(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	store := newMemStorage()
	c := newTestCoordinator(t, resolver, store)

	gate := resolver.gate(repoA)
	require.NoError(t, c.Select(context.Background(), repoA))

	snap := c.Snapshot()
	assert.Equal(t, domain.Resolving(), snap.State)
	assert.Equal(t, "alpha → Updating", snap.Label)
	assert.Equal(t, repoA, snap.RepositoryPath())

	close(gate)
	snap = settle(t, c)
	assert.Equal(t, domain.OnBranch("main"), snap.State)
	assert.Equal(t, "alpha → main", snap.Label)

	path, saves, _ := store.selection.stored()
	assert.Equal(t, repoA, path)
	assert.Equal(t, 1, saves)

	recent, err := c.RecentRepositories(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, repoA, recent[0].Path)
}

func TestCoordinator_SelectNotARepository(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	store := newMemStorage()
	c := newTestCoordinator(t, resolver, store)

	require.NoError(t, c.Select(context.Background(), repoA))
	before := settle(t, c)

	err := c.Select(context.Background(), "/work/plain-folder")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotARepository))

	after := c.Snapshot()
	assert.Equal(t, before.Selection.ID, after.Selection.ID, "selection must be untouched")
	assert.Equal(t, before.State, after.State)

	path, saves, _ := store.selection.stored()
	assert.Equal(t, repoA, path)
	assert.Equal(t, 1, saves)
}

func TestCoordinator_ConcurrentSelectsKeepStoreInStep(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	resolver.addRepo(repoB, domain.OnBranch("dev"))
	store := newMemStorage()
	c := newTestCoordinator(t, resolver, store)

	// Select(A) stalls after persisting A while Select(B) runs to completion.
	held, release := store.recent.hold(repoA)
	doneA := make(chan error, 1)
	go func() { doneA <- c.Select(context.Background(), repoA) }()
	<-held

	doneB := make(chan error, 1)
	go func() { doneB <- c.Select(context.Background(), repoB) }()
	select {
	case err := <-doneB:
		t.Fatalf("Select(B) finished while Select(A) was mid-way: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-doneA)
	require.NoError(t, <-doneB)

	path, saves, _ := store.selection.stored()
	assert.Equal(t, 2, saves)
	assert.Equal(t, c.Snapshot().RepositoryPath(), path, "stored path must match the live selection")
	assert.Equal(t, repoB, path)
}

func TestCoordinator_SelectEmptyPath(t *testing.T) {
	c := newTestCoordinator(t, newFakeResolver(), newMemStorage())

	err := c.Select(context.Background(), "  ")
	assert.True(t, errors.Is(err, domain.ErrNotARepository))
	assert.False(t, c.Snapshot().HasSelection())
}

func TestCoordinator_PersistenceFailureIsAbsorbed(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	store := newMemStorage()
	store.selection.saveErr = errors.New("disk full")
	c := newTestCoordinator(t, resolver, store)

	require.NoError(t, c.Select(context.Background(), repoA))
	assert.Equal(t, domain.OnBranch("main"), settle(t, c).State)
}

func TestCoordinator_Clear(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	store := newMemStorage()
	c := newTestCoordinator(t, resolver, store)

	require.NoError(t, c.Select(context.Background(), repoA))
	settle(t, c)

	c.Clear(context.Background())

	snap := c.Snapshot()
	assert.False(t, snap.HasSelection())
	assert.Equal(t, domain.Unselected(), snap.State)
	assert.Equal(t, "No repo selected", snap.Label)

	path, _, evicts := store.selection.stored()
	assert.Empty(t, path)
	assert.Equal(t, 1, evicts)
}

func TestCoordinator_ClearDiscardsInFlight(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	c := newTestCoordinator(t, resolver, newMemStorage())

	gate := resolver.gate(repoA)
	require.NoError(t, c.Select(context.Background(), repoA))
	c.Clear(context.Background())
	close(gate)

	assert.Never(t, func() bool {
		return c.Snapshot().State != domain.Unselected()
	}, 150*time.Millisecond, 5*time.Millisecond)
	assert.False(t, c.Snapshot().HasSelection())
}

func TestCoordinator_RefreshWithoutSelection(t *testing.T) {
	resolver := newFakeResolver()
	c := newTestCoordinator(t, resolver, newMemStorage())

	c.RefreshNow()

	assert.Equal(t, domain.Unselected(), c.Snapshot().State)
	assert.Empty(t, resolver.calls)
}

func TestCoordinator_RefreshPicksUpChanges(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	c := newTestCoordinator(t, resolver, newMemStorage())

	require.NoError(t, c.Select(context.Background(), repoA))
	settle(t, c)

	resolver.setState(repoA, domain.Detached("abc1234"))
	c.RefreshNow()
	eventuallyState(t, c, domain.Detached("abc1234"))
	assert.Equal(t, "alpha → DETACHED(abc1234)", c.Snapshot().Label)
}

func TestCoordinator_RefreshDoesNotFlicker(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	c := newTestCoordinator(t, resolver, newMemStorage())

	require.NoError(t, c.Select(context.Background(), repoA))
	settle(t, c)

	gate := resolver.gate(repoA)
	c.RefreshNow()
	assert.Equal(t, domain.OnBranch("main"), c.Snapshot().State, "refresh keeps the last state while running")
	close(gate)
}

func TestCoordinator_FailureBecomesUnavailable(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	c := newTestCoordinator(t, resolver, newMemStorage())

	require.NoError(t, c.Select(context.Background(), repoA))
	settle(t, c)

	resolver.fail(repoA, &domain.ExecutionError{Code: 128, Message: "fatal: not a git repository"})
	c.RefreshNow()
	eventuallyState(t, c, domain.Unavailable("fatal: not a git repository"))

	snap := c.Snapshot()
	assert.Equal(t, "Unavailable", snap.Label)
	assert.True(t, snap.HasSelection(), "failures keep the selection")

	resolver.setState(repoA, domain.OnBranch("main"))
	c.RefreshNow()
	eventuallyState(t, c, domain.OnBranch("main"))
}

func TestCoordinator_StaleResultDiscarded(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("alpha-branch"))
	resolver.addRepo(repoB, domain.OnBranch("beta-branch"))
	c := newTestCoordinator(t, resolver, newMemStorage())

	gateA := resolver.gate(repoA)
	require.NoError(t, c.Select(context.Background(), repoA))
	require.Eventually(t, func() bool { return resolver.resolveCalls(repoA) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Select(context.Background(), repoB))
	assert.Equal(t, domain.OnBranch("beta-branch"), settle(t, c).State)

	// A completes after the selection moved to B.
	close(gateA)

	assert.Never(t, func() bool {
		snap := c.Snapshot()
		return snap.State != domain.OnBranch("beta-branch") || snap.RepositoryPath() != repoB
	}, 200*time.Millisecond, 5*time.Millisecond)
}

func TestCoordinator_ReselectSamePathIsNewSelection(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	c := newTestCoordinator(t, resolver, newMemStorage())

	gate := resolver.gate(repoA)
	require.NoError(t, c.Select(context.Background(), repoA))
	first := c.Snapshot().Selection.ID

	require.NoError(t, c.Select(context.Background(), repoA))
	second := c.Snapshot().Selection.ID
	assert.NotEqual(t, first, second)

	close(gate)
	assert.Equal(t, domain.OnBranch("main"), settle(t, c).State)
}

func TestCoordinator_OutOfOrderResultDiscarded(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	c := NewCoordinator(resolver, newMemStorage(), CoordinatorConfig{Interval: time.Hour}, logging.NopLogger())
	defer c.Stop()

	gate := resolver.gate(repoA)
	require.NoError(t, c.Select(context.Background(), repoA))
	id := c.Snapshot().Selection.ID

	c.apply(cycleResult{selectionID: id, seq: 5, state: domain.OnBranch("newer")})
	c.apply(cycleResult{selectionID: id, seq: 3, state: domain.OnBranch("older")})
	assert.Equal(t, domain.OnBranch("newer"), c.Snapshot().State)

	c.apply(cycleResult{selectionID: "some-other-selection", seq: 9, state: domain.OnBranch("foreign")})
	assert.Equal(t, domain.OnBranch("newer"), c.Snapshot().State)
	close(gate)
}

func TestCoordinator_InFlightCollapsed(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	c := newTestCoordinator(t, resolver, newMemStorage())

	gate := resolver.gate(repoA)
	require.NoError(t, c.Select(context.Background(), repoA))
	require.Eventually(t, func() bool { return resolver.resolveCalls(repoA) == 1 }, time.Second, time.Millisecond)

	c.RefreshNow()
	c.RefreshNow()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, resolver.resolveCalls(repoA), "refreshes join the running resolution")

	close(gate)
	assert.Equal(t, domain.OnBranch("main"), settle(t, c).State)
}

func TestCoordinator_Restore(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	store := newMemStorage()
	store.selection.path = repoA
	c := newTestCoordinator(t, resolver, store)

	assert.True(t, c.Restore(context.Background()))
	assert.Equal(t, "alpha → main", settle(t, c).Label)

	_, saves, evicts := store.selection.stored()
	assert.Equal(t, 0, saves, "restore must not persist again")
	assert.Equal(t, 0, evicts)
}

func TestCoordinator_RestoreInvalidEvicts(t *testing.T) {
	store := newMemStorage()
	store.selection.path = "/work/deleted"
	c := newTestCoordinator(t, newFakeResolver(), store)

	assert.False(t, c.Restore(context.Background()))

	path, _, evicts := store.selection.stored()
	assert.Empty(t, path)
	assert.Equal(t, 1, evicts)
	assert.Equal(t, domain.Unselected(), c.Snapshot().State)
	assert.False(t, c.Snapshot().HasSelection())
}

func TestCoordinator_RestoreNothingStored(t *testing.T) {
	store := newMemStorage()
	c := newTestCoordinator(t, newFakeResolver(), store)

	assert.False(t, c.Restore(context.Background()))
	_, _, evicts := store.selection.stored()
	assert.Equal(t, 0, evicts)
}

func TestCoordinator_OnChange(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	c := newTestCoordinator(t, resolver, newMemStorage())

	var count atomic.Int32
	labels := make(chan string, 16)
	c.SetOnChange(func(s domain.Snapshot) {
		count.Add(1)
		labels <- s.Label
	})

	require.NoError(t, c.Select(context.Background(), repoA))
	settle(t, c)
	assert.Equal(t, "alpha → Updating", <-labels)
	assert.Equal(t, "alpha → main", <-labels)

	// An unchanged result is not reported.
	c.RefreshNow()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(2), count.Load())

	c.Clear(context.Background())
	assert.Equal(t, "No repo selected", <-labels)
}

func TestCoordinator_NotifiesBranchChange(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	notifier := &fakeNotifier{}
	c := newTestCoordinator(t, resolver, newMemStorage())
	c.SetNotifier(notifier)

	require.NoError(t, c.Select(context.Background(), repoA))
	settle(t, c)
	assert.Empty(t, notifier.sent(), "first resolution is not a change")

	resolver.setState(repoA, domain.OnBranch("feature/login"))
	c.RefreshNow()
	eventuallyState(t, c, domain.OnBranch("feature/login"))

	assert.Equal(t, []string{"alpha:main->feature/login"}, notifier.sent())
}

func TestCoordinator_WatcherFollowsSelection(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	resolver.addRepo(repoB, domain.OnBranch("dev"))
	watcher := &fakeWatcher{}
	c := newTestCoordinator(t, resolver, newMemStorage())
	c.SetWatcher(watcher)

	require.NoError(t, c.Select(context.Background(), repoA))
	settle(t, c)
	require.Eventually(t, func() bool { return watcher.target() == repoA }, time.Second, time.Millisecond)

	require.NoError(t, c.Select(context.Background(), repoB))
	settle(t, c)
	require.Eventually(t, func() bool { return watcher.target() == repoB }, time.Second, time.Millisecond)

	c.Clear(context.Background())
	assert.Empty(t, watcher.target())
}

func TestCoordinator_StartStopIdempotent(t *testing.T) {
	c := NewCoordinator(newFakeResolver(), nil, CoordinatorConfig{}, nil)
	assert.Equal(t, DefaultInterval, c.cfg.Interval)
	assert.Equal(t, DefaultMaxWidth, c.cfg.MaxWidth)

	c.Start(context.Background())
	c.Start(context.Background())
	c.Stop()
	c.Stop()

	// Start after Stop does nothing.
	c.Start(context.Background())
	c.RefreshNow()
	assert.Equal(t, domain.Unselected(), c.Snapshot().State)
}

func TestCoordinator_TickerRefreshes(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	c := NewCoordinator(resolver, newMemStorage(), CoordinatorConfig{Interval: 10 * time.Millisecond}, logging.NopLogger())
	c.Start(context.Background())
	defer c.Stop()

	require.NoError(t, c.Select(context.Background(), repoA))
	settle(t, c)

	resolver.setState(repoA, domain.OnBranch("release"))
	eventuallyState(t, c, domain.OnBranch("release"))
	assert.GreaterOrEqual(t, resolver.resolveCalls(repoA), 2)
}

func TestCoordinator_NilStorage(t *testing.T) {
	resolver := newFakeResolver()
	resolver.addRepo(repoA, domain.OnBranch("main"))
	c := NewCoordinator(resolver, nil, CoordinatorConfig{Interval: time.Hour}, nil)
	c.Start(context.Background())
	defer c.Stop()

	require.NoError(t, c.Select(context.Background(), repoA))
	assert.Equal(t, domain.OnBranch("main"), settle(t, c).State)
	assert.False(t, c.Restore(context.Background()))

	recent, err := c.RecentRepositories(context.Background(), 5)
	assert.NoError(t, err)
	assert.Nil(t, recent)
}
