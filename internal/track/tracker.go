package track

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/appsweep/internal/logging"
	"github.com/blackwell-systems/appsweep/internal/procs"
	"github.com/blackwell-systems/appsweep/internal/score"
)

// ProtectionStore persists per-identity protection flags so they survive app
// and appsweep restarts. The sqlite implementation lives in internal/store.
type ProtectionStore interface {
	SetProtected(id string, protected bool) error
}

// Tracker merges enumeration results with protection and selection state and
// publishes immutable snapshots. All mutation happens behind one mutex; the
// snapshot pointer is replaced wholesale, never edited in place.
type Tracker struct {
	mu          sync.RWMutex
	cfg         score.Config
	snap        *Snapshot
	protected   map[string]bool
	selected    string // empty means no selection
	pendingQuit map[string]bool

	prot ProtectionStore // optional
	log  *logging.Logger

	changes chan struct{}
}

// New creates an empty tracker scoring with cfg.
func New(cfg score.Config, log *logging.Logger) *Tracker {
	if log == nil {
		log = logging.NewNop()
	}
	return &Tracker{
		cfg:         cfg,
		snap:        &Snapshot{TakenAt: time.Now()},
		protected:   make(map[string]bool),
		pendingQuit: make(map[string]bool),
		log:         log,
		changes:     make(chan struct{}, 1),
	}
}

// WithProtectionStore attaches persistence for protection toggles.
func (t *Tracker) WithProtectionStore(ps ProtectionStore) *Tracker {
	t.prot = ps
	return t
}

// SeedProtected loads persisted protection flags, typically at startup.
func (t *Tracker) SeedProtected(ids map[string]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, on := range ids {
		if on {
			t.protected[id] = true
		}
	}
}

// Changes returns a channel that receives a coalesced signal after every
// snapshot swap. Consumers re-query the tracker when it fires.
func (t *Tracker) Changes() <-chan struct{} {
	return t.changes
}

// notify must not be called with t.mu held by readers it could block; sends
// are non-blocking so a slow consumer only misses coalesced signals.
func (t *Tracker) notify() {
	select {
	case t.changes <- struct{}{}:
	default:
	}
}

// SetScoreConfig replaces the scoring configuration. The next refresh scores
// with the new values.
func (t *Tracker) SetScoreConfig(cfg score.Config) {
	t.mu.Lock()
	t.cfg = cfg
	t.mu.Unlock()
}

// ScoreConfig returns the current scoring configuration.
func (t *Tracker) ScoreConfig() score.Config {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg
}

// ApplyRefresh merges raw enumerator output into a new snapshot and swaps it
// in. Protection flags carry forward by identity. Apps whose id is absent
// from a full read are dropped; on a partial read, previously known apps not
// re-reported are carried forward (re-scored against the clock) until a full
// read proves them gone. A dropped app that was selected clears the
// selection; an optimistically removed app that reappears has its removal
// reverted.
func (t *Tracker) ApplyRefresh(raw []procs.RawAppInfo, now time.Time, partial bool) {
	t.mu.Lock()

	prev := t.snap
	seen := make(map[string]bool, len(raw))
	apps := make([]TrackedApp, 0, len(raw))

	for _, r := range raw {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		if t.pendingQuit[r.ID] {
			// Termination did not take: the OS still reports the app, so the
			// optimistic removal is reverted here by re-admitting it.
			t.log.Warn("optimistic removal reverted, app still running",
				zap.String("app", r.ID))
			delete(t.pendingQuit, r.ID)
		}

		res := score.Compute(r.MemoryBytes, r.LastActiveAt, now, t.cfg)
		apps = append(apps, TrackedApp{
			ID:             r.ID,
			DisplayName:    r.Name,
			IconRef:        r.IconRef,
			MemoryBytes:    r.MemoryBytes,
			CPUPercent:     r.CPUPercent,
			LaunchedAt:     r.LaunchedAt,
			LastActiveAt:   r.LastActiveAt,
			IsProtected:    t.protected[r.ID],
			IsSystemApp:    r.IsSystemApp,
			StalenessScore: res.Score,
			IsStale:        res.Stale,
			IsHeavy:        res.Heavy,
		})
	}

	if partial {
		// Missing-but-previously-seen apps are treated as still present: a
		// flaky partial read must not make them spuriously disappear.
		for _, a := range prev.Apps {
			if seen[a.ID] || t.pendingQuit[a.ID] {
				continue
			}
			res := score.Compute(a.MemoryBytes, a.LastActiveAt, now, t.cfg)
			a.IsProtected = t.protected[a.ID]
			a.StalenessScore = res.Score
			a.IsStale = res.Stale
			a.IsHeavy = res.Heavy
			apps = append(apps, a)
			seen[a.ID] = true
		}
	} else {
		// A full read is authoritative: confirmed quits stop being pending.
		for id := range t.pendingQuit {
			if !seen[id] {
				delete(t.pendingQuit, id)
			}
		}
	}

	sort.Slice(apps, func(i, j int) bool {
		ni, nj := strings.ToLower(apps[i].DisplayName), strings.ToLower(apps[j].DisplayName)
		if ni != nj {
			return ni < nj
		}
		return apps[i].ID < apps[j].ID
	})

	if t.selected != "" && !seen[t.selected] {
		t.selected = ""
	}

	t.snap = &Snapshot{Apps: apps, TakenAt: now, Partial: partial}
	t.mu.Unlock()

	t.notify()
}

// Current returns the current snapshot. The returned value is immutable and
// safe to read without coordination.
func (t *Tracker) Current() *Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Get returns the tracked app with the given id from the current snapshot.
func (t *Tracker) Get(id string) (TrackedApp, bool) {
	return t.Current().Lookup(id)
}

// Select sets the current selection if the id exists in the snapshot.
func (t *Tracker) Select(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.snap.Lookup(id); !ok {
		return false
	}
	t.selected = id
	return true
}

// Selected resolves the selection against the current snapshot, returning
// false when nothing is selected or the selected app is gone.
func (t *Tracker) Selected() (TrackedApp, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.selected == "" {
		return TrackedApp{}, false
	}
	return t.snap.Lookup(t.selected)
}

// ToggleProtection flips the protection flag for the identified app and
// persists the new value. Unknown ids are an idempotent no-op.
func (t *Tracker) ToggleProtection(id string) {
	t.mu.Lock()
	app, ok := t.snap.Lookup(id)
	if !ok {
		t.mu.Unlock()
		return
	}

	on := !t.protected[id]
	if on {
		t.protected[id] = true
	} else {
		delete(t.protected, id)
	}

	apps := make([]TrackedApp, len(t.snap.Apps))
	copy(apps, t.snap.Apps)
	for i := range apps {
		if apps[i].ID == id {
			apps[i].IsProtected = on
		}
	}
	t.snap = &Snapshot{Apps: apps, TakenAt: t.snap.TakenAt, Partial: t.snap.Partial}
	prot := t.prot
	t.mu.Unlock()

	t.log.Info("protection toggled",
		zap.String("app", app.DisplayName), zap.Bool("protected", on))

	if prot != nil {
		if err := prot.SetProtected(id, on); err != nil {
			t.log.Error("persisting protection flag", zap.String("app", id), zap.Error(err))
		}
	}

	t.notify()
}

// RemoveOptimistic drops the app from the snapshot ahead of OS confirmation
// of a quit. If the next enumeration still reports the app, ApplyRefresh
// reverts the removal. Returns false when the id is not present.
func (t *Tracker) RemoveOptimistic(id string) bool {
	t.mu.Lock()
	if _, ok := t.snap.Lookup(id); !ok {
		t.mu.Unlock()
		return false
	}

	apps := make([]TrackedApp, 0, len(t.snap.Apps)-1)
	for _, a := range t.snap.Apps {
		if a.ID != id {
			apps = append(apps, a)
		}
	}
	t.pendingQuit[id] = true
	if t.selected == id {
		t.selected = ""
	}
	t.snap = &Snapshot{Apps: apps, TakenAt: t.snap.TakenAt, Partial: t.snap.Partial}
	t.mu.Unlock()

	t.notify()
	return true
}

// StaleCount returns the number of stale apps in the current snapshot.
func (t *Tracker) StaleCount() int {
	snap := t.Current()
	n := 0
	for _, a := range snap.Apps {
		if a.IsStale {
			n++
		}
	}
	return n
}
