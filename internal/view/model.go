// Package view exposes the engine to UI layers as a read model plus
// commands: query inputs (search, filter, sort), selection, the guarded app
// actions, cleanup planning, and derived read values. It holds no app state
// of its own beyond the query inputs; everything else is answered from the
// tracker's current snapshot on each read.
package view

import (
	"context"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/blackwell-systems/appsweep/internal/actions"
	"github.com/blackwell-systems/appsweep/internal/cleanup"
	"github.com/blackwell-systems/appsweep/internal/sched"
	"github.com/blackwell-systems/appsweep/internal/track"
)

// Model is the UI-facing surface. Constructed once with its collaborators
// and passed by reference to consumers; there is no ambient global.
type Model struct {
	tracker   *track.Tracker
	executor  *actions.Executor
	planner   *cleanup.Planner
	scheduler *sched.Scheduler

	mu        sync.Mutex
	search    string
	filter    track.FilterOption
	sortBy    track.SortOption
	ascending bool
}

// New creates a view model. The initial query is all apps sorted by
// staleness, strongest candidates first.
func New(tracker *track.Tracker, executor *actions.Executor, planner *cleanup.Planner, scheduler *sched.Scheduler) *Model {
	return &Model{
		tracker:   tracker,
		executor:  executor,
		planner:   planner,
		scheduler: scheduler,
		filter:    track.FilterAll,
		sortBy:    track.SortByStaleness,
		ascending: false,
	}
}

// Changes signals after every snapshot swap; consumers re-read the displayed
// values when it fires.
func (m *Model) Changes() <-chan struct{} { return m.tracker.Changes() }

// SetSearchQuery updates the search input.
func (m *Model) SetSearchQuery(text string) {
	m.mu.Lock()
	m.search = text
	m.mu.Unlock()
}

// SetFilter updates the filter option.
func (m *Model) SetFilter(f track.FilterOption) {
	m.mu.Lock()
	m.filter = f
	m.mu.Unlock()
}

// SetSort updates the sort key and direction.
func (m *Model) SetSort(s track.SortOption, ascending bool) {
	m.mu.Lock()
	m.sortBy = s
	m.ascending = ascending
	m.mu.Unlock()
}

// Query returns the current query inputs.
func (m *Model) Query() (search string, filter track.FilterOption, sortBy track.SortOption, ascending bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.search, m.filter, m.sortBy, m.ascending
}

// SelectApp sets the selection if the id is present in the snapshot.
func (m *Model) SelectApp(id string) bool { return m.tracker.Select(id) }

// SelectedApp resolves the selection against the current snapshot.
func (m *Model) SelectedApp() (track.TrackedApp, bool) { return m.tracker.Selected() }

// ToggleProtection flips and persists the protection flag for the app.
func (m *Model) ToggleProtection(id string) { m.tracker.ToggleProtection(id) }

// Activate brings the app to the foreground.
func (m *Model) Activate(ctx context.Context, id string) error {
	return m.executor.Activate(ctx, id)
}

// Hide hides the app's windows.
func (m *Model) Hide(ctx context.Context, id string) error {
	return m.executor.Hide(ctx, id)
}

// Quit requests guarded termination of the app.
func (m *Model) Quit(ctx context.Context, id string) error {
	return m.executor.Quit(ctx, id)
}

// PrepareCleanup builds a cleanup plan from the current snapshot.
func (m *Model) PrepareCleanup() cleanup.Plan { return m.planner.Prepare() }

// ExecuteCleanup runs a prepared plan through the guarded executor.
func (m *Model) ExecuteCleanup(ctx context.Context, plan cleanup.Plan) cleanup.Result {
	return m.planner.Execute(ctx, plan, m.executor)
}

// Refresh triggers an on-demand refresh cycle, coalescing with any cycle
// already in flight.
func (m *Model) Refresh(ctx context.Context) error {
	return m.scheduler.Refresh(ctx)
}

// DisplayedApps runs the query pipeline over the current snapshot.
func (m *Model) DisplayedApps() []track.TrackedApp {
	search, filter, sortBy, asc := m.Query()
	return m.tracker.Query(search, filter, sortBy, asc)
}

// StaleAppCount counts stale apps in the whole snapshot, regardless of the
// current query.
func (m *Model) StaleAppCount() int { return m.tracker.StaleCount() }

// FormattedTotalMemory renders the total memory of the current query result,
// e.g. "1.2 GB".
func (m *Model) FormattedTotalMemory() string {
	return humanize.IBytes(track.TotalMemory(m.DisplayedApps()))
}
