package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/appsweep/internal/logging"
	"github.com/blackwell-systems/appsweep/internal/procs"
	"github.com/blackwell-systems/appsweep/internal/score"
)

func rawApp(id, name string, mem uint64, idle time.Duration, now time.Time) procs.RawAppInfo {
	return procs.RawAppInfo{
		ID:           id,
		Name:         name,
		MemoryBytes:  mem,
		LaunchedAt:   now.Add(-24 * time.Hour),
		LastActiveAt: now.Add(-idle),
	}
}

func newTestTracker() *Tracker {
	return New(score.DefaultConfig(), logging.NewNop())
}

func TestApplyRefresh_ScoresAndOrders(t *testing.T) {
	tr := newTestTracker()
	now := time.Now()

	tr.ApplyRefresh([]procs.RawAppInfo{
		rawApp("b", "Beta", 300*1024*1024, 2400*time.Second, now),
		rawApp("a", "Alpha", 0, 0, now),
	}, now, false)

	snap := tr.Current()
	require.Len(t, snap.Apps, 2)
	assert.Equal(t, "Alpha", snap.Apps[0].DisplayName, "snapshot ordered by name")

	beta, ok := snap.Lookup("b")
	require.True(t, ok)
	assert.True(t, beta.IsStale)
	assert.False(t, beta.IsHeavy)
	assert.InDelta(t, 0.88, beta.StalenessScore, 1e-9)
}

func TestApplyRefresh_RemovesVanishedAndClearsSelection(t *testing.T) {
	tr := newTestTracker()
	now := time.Now()

	tr.ApplyRefresh([]procs.RawAppInfo{
		rawApp("a", "Alpha", 0, 0, now),
		rawApp("b", "Beta", 0, 0, now),
	}, now, false)
	require.True(t, tr.Select("b"))

	tr.ApplyRefresh([]procs.RawAppInfo{
		rawApp("a", "Alpha", 0, 0, now),
	}, now.Add(5*time.Second), false)

	_, ok := tr.Get("b")
	assert.False(t, ok, "vanished app removed")
	_, ok = tr.Selected()
	assert.False(t, ok, "selection cleared when the selected app vanishes")
}

func TestApplyRefresh_PartialCarriesForwardKnownApps(t *testing.T) {
	tr := newTestTracker()
	now := time.Now()

	tr.ApplyRefresh([]procs.RawAppInfo{
		rawApp("a", "Alpha", 100, 0, now),
		rawApp("b", "Beta", 200, 1000*time.Second, now),
	}, now, false)

	// Partial read misses Beta: it must survive and be re-scored at the new
	// clock, crossing the stale threshold it had not crossed before.
	later := now.Add(1000 * time.Second)
	tr.ApplyRefresh([]procs.RawAppInfo{
		rawApp("a", "Alpha", 100, 0, later),
	}, later, true)

	beta, ok := tr.Get("b")
	require.True(t, ok, "partial read must not drop known apps")
	assert.True(t, beta.IsStale, "carried app re-scored against the new clock")
	assert.True(t, tr.Current().Partial)

	// A full read is authoritative and drops it.
	tr.ApplyRefresh([]procs.RawAppInfo{
		rawApp("a", "Alpha", 100, 0, later),
	}, later.Add(5*time.Second), false)
	_, ok = tr.Get("b")
	assert.False(t, ok)
}

func TestProtectionCarriesAcrossRefreshes(t *testing.T) {
	tr := newTestTracker()
	now := time.Now()

	tr.ApplyRefresh([]procs.RawAppInfo{rawApp("a", "Alpha", 0, 0, now)}, now, false)
	tr.ToggleProtection("a")

	app, ok := tr.Get("a")
	require.True(t, ok)
	require.True(t, app.IsProtected)

	// Protection survives the app vanishing and returning (same identity).
	tr.ApplyRefresh(nil, now.Add(time.Second), false)
	tr.ApplyRefresh([]procs.RawAppInfo{rawApp("a", "Alpha", 0, 0, now)}, now.Add(2*time.Second), false)

	app, ok = tr.Get("a")
	require.True(t, ok)
	assert.True(t, app.IsProtected)

	tr.ToggleProtection("a")
	app, _ = tr.Get("a")
	assert.False(t, app.IsProtected)

	// Unknown id is a no-op.
	tr.ToggleProtection("missing")
}

type fakeProtStore struct {
	set map[string]bool
}

func (f *fakeProtStore) SetProtected(id string, on bool) error {
	if f.set == nil {
		f.set = make(map[string]bool)
	}
	f.set[id] = on
	return nil
}

func TestToggleProtection_Persists(t *testing.T) {
	ps := &fakeProtStore{}
	tr := newTestTracker().WithProtectionStore(ps)
	now := time.Now()

	tr.ApplyRefresh([]procs.RawAppInfo{rawApp("a", "Alpha", 0, 0, now)}, now, false)
	tr.ToggleProtection("a")

	assert.Equal(t, map[string]bool{"a": true}, ps.set)
}

func TestSeedProtected(t *testing.T) {
	tr := newTestTracker()
	tr.SeedProtected(map[string]bool{"a": true, "b": false})

	now := time.Now()
	tr.ApplyRefresh([]procs.RawAppInfo{
		rawApp("a", "Alpha", 0, 0, now),
		rawApp("b", "Beta", 0, 0, now),
	}, now, false)

	a, _ := tr.Get("a")
	b, _ := tr.Get("b")
	assert.True(t, a.IsProtected)
	assert.False(t, b.IsProtected)
}

func TestRemoveOptimistic_ConfirmedByFullRead(t *testing.T) {
	tr := newTestTracker()
	now := time.Now()

	tr.ApplyRefresh([]procs.RawAppInfo{
		rawApp("a", "Alpha", 0, 0, now),
		rawApp("b", "Beta", 0, 0, now),
	}, now, false)
	require.True(t, tr.Select("b"))

	require.True(t, tr.RemoveOptimistic("b"))
	_, ok := tr.Get("b")
	assert.False(t, ok, "optimistically removed")
	_, ok = tr.Selected()
	assert.False(t, ok)

	// Next full read confirms the exit.
	tr.ApplyRefresh([]procs.RawAppInfo{rawApp("a", "Alpha", 0, 0, now)}, now.Add(5*time.Second), false)
	_, ok = tr.Get("b")
	assert.False(t, ok)

	assert.False(t, tr.RemoveOptimistic("missing"))
}

func TestRemoveOptimistic_RevertedWhenAppStillRunning(t *testing.T) {
	tr := newTestTracker()
	now := time.Now()

	tr.ApplyRefresh([]procs.RawAppInfo{rawApp("a", "Alpha", 0, 0, now)}, now, false)
	require.True(t, tr.RemoveOptimistic("a"))

	// The OS still reports the app: the removal is reverted so the store
	// converges back to OS truth.
	tr.ApplyRefresh([]procs.RawAppInfo{rawApp("a", "Alpha", 0, 0, now)}, now.Add(5*time.Second), false)

	_, ok := tr.Get("a")
	assert.True(t, ok, "removal reverted")
}

func TestRemoveOptimistic_NotResurrectedByPartialRead(t *testing.T) {
	tr := newTestTracker()
	now := time.Now()

	tr.ApplyRefresh([]procs.RawAppInfo{
		rawApp("a", "Alpha", 0, 0, now),
		rawApp("b", "Beta", 0, 0, now),
	}, now, false)
	require.True(t, tr.RemoveOptimistic("b"))

	// A partial read missing the quit app must not carry it forward from the
	// previous snapshot.
	tr.ApplyRefresh([]procs.RawAppInfo{rawApp("a", "Alpha", 0, 0, now)}, now.Add(time.Second), true)

	_, ok := tr.Get("b")
	assert.False(t, ok)
}

func TestChanges_CoalescedNotification(t *testing.T) {
	tr := newTestTracker()
	now := time.Now()

	tr.ApplyRefresh([]procs.RawAppInfo{rawApp("a", "Alpha", 0, 0, now)}, now, false)
	tr.ApplyRefresh([]procs.RawAppInfo{rawApp("a", "Alpha", 0, 0, now)}, now.Add(time.Second), false)

	select {
	case <-tr.Changes():
	default:
		t.Fatal("expected a pending change notification")
	}
	select {
	case <-tr.Changes():
		t.Fatal("notifications should coalesce")
	default:
	}
}

func TestStaleCount(t *testing.T) {
	tr := newTestTracker()
	now := time.Now()

	tr.ApplyRefresh([]procs.RawAppInfo{
		rawApp("a", "Alpha", 0, 2*time.Hour, now),
		rawApp("b", "Beta", 0, 0, now),
		rawApp("c", "Gamma", 0, time.Hour, now),
	}, now, false)

	assert.Equal(t, 2, tr.StaleCount())
}
