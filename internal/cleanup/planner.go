// Package cleanup derives bulk-termination plans from the tracking store. A
// plan is a preview: executing it is a separate, explicit step layered on the
// guarded quit, never implicit.
package cleanup

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/blackwell-systems/appsweep/internal/actions"
	"github.com/blackwell-systems/appsweep/internal/logging"
	"github.com/blackwell-systems/appsweep/internal/track"
)

// Plan is an ordered, exclusion-filtered list of stale candidates for bulk
// termination, strongest candidates first. An empty candidate list is a valid
// plan, not an error.
type Plan struct {
	ID               string
	CreatedAt        time.Time
	Candidates       []track.TrackedApp
	ReclaimableBytes uint64
}

// Empty reports whether the plan has no candidates.
func (p Plan) Empty() bool { return len(p.Candidates) == 0 }

// Planner builds cleanup plans from the current snapshot.
type Planner struct {
	tracker *track.Tracker
	log     *logging.Logger
}

// New creates a planner over the tracker.
func New(tracker *track.Tracker, log *logging.Logger) *Planner {
	if log == nil {
		log = logging.NewNop()
	}
	return &Planner{tracker: tracker, log: log}
}

// Prepare selects every stale app that is neither protected nor a system
// app, ordered by staleness score descending with display-name ties
// ascending, and annotates the plan with the memory a full execution would
// reclaim.
func (p *Planner) Prepare() Plan {
	snap := p.tracker.Current()

	var candidates []track.TrackedApp
	var reclaimable uint64
	for _, a := range snap.Apps {
		if !a.IsStale || !a.Terminable() {
			continue
		}
		candidates = append(candidates, a)
		reclaimable += a.MemoryBytes
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].StalenessScore != candidates[j].StalenessScore {
			return candidates[i].StalenessScore > candidates[j].StalenessScore
		}
		return strings.ToLower(candidates[i].DisplayName) < strings.ToLower(candidates[j].DisplayName)
	})

	return Plan{
		ID:               uuid.New().String(),
		CreatedAt:        time.Now(),
		Candidates:       candidates,
		ReclaimableBytes: reclaimable,
	}
}

// Result records the outcome of executing a plan.
type Result struct {
	Quit   []string
	Failed map[string]error
}

// Execute quits every candidate through the guarded executor. Individual
// failures (an app that exited on its own, or one protected after the plan
// was prepared) are collected, not fatal: the remaining candidates still run.
func (p *Planner) Execute(ctx context.Context, plan Plan, exec *actions.Executor) Result {
	res := Result{Failed: make(map[string]error)}

	p.log.Info("executing cleanup plan",
		zap.String("plan", plan.ID),
		zap.Int("candidates", len(plan.Candidates)),
		zap.Uint64("reclaimable_bytes", plan.ReclaimableBytes))

	for _, a := range plan.Candidates {
		if err := ctx.Err(); err != nil {
			res.Failed[a.ID] = err
			continue
		}
		if err := exec.Quit(ctx, a.ID); err != nil {
			res.Failed[a.ID] = err
			continue
		}
		res.Quit = append(res.Quit, a.ID)
	}

	p.log.Info("cleanup plan finished",
		zap.String("plan", plan.ID),
		zap.Int("quit", len(res.Quit)),
		zap.Int("failed", len(res.Failed)))
	return res
}
