// Package track holds the authoritative in-memory state of tracked
// applications. Each refresh produces an immutable Snapshot that is swapped
// in atomically; readers always observe a fully consistent snapshot and no
// partial-refresh state is ever visible. Queries (search, filter, sort) are
// pure functions over the current snapshot.
package track

import (
	"fmt"
	"time"
)

// TrackedApp is one distinct running application instance, merged from the
// latest enumeration and the persisted protection state, with its staleness
// classification computed.
type TrackedApp struct {
	ID          string
	DisplayName string
	IconRef     string

	MemoryBytes uint64
	CPUPercent  float64

	LaunchedAt   time.Time
	LastActiveAt time.Time

	IsProtected bool
	IsSystemApp bool

	StalenessScore float64
	IsStale        bool
	IsHeavy        bool
}

// Terminable reports whether the app may be quit. Protected and system apps
// are never eligible for termination.
func (a TrackedApp) Terminable() bool {
	return !a.IsProtected && !a.IsSystemApp
}

// Snapshot is an immutable point-in-time set of tracked apps, ordered by
// display name. Partial marks snapshots built from a partial enumeration,
// where previously known apps missing from the read were carried forward.
type Snapshot struct {
	Apps    []TrackedApp
	TakenAt time.Time
	Partial bool
}

// Lookup returns the app with the given id, if present.
func (s *Snapshot) Lookup(id string) (TrackedApp, bool) {
	for _, a := range s.Apps {
		if a.ID == id {
			return a, true
		}
	}
	return TrackedApp{}, false
}

// FilterOption selects which apps a query returns.
type FilterOption int

const (
	FilterAll FilterOption = iota
	FilterStale
	FilterHeavy
)

func (f FilterOption) String() string {
	switch f {
	case FilterStale:
		return "stale"
	case FilterHeavy:
		return "heavy"
	default:
		return "all"
	}
}

// ParseFilter converts a user-supplied filter name.
func ParseFilter(s string) (FilterOption, error) {
	switch s {
	case "", "all":
		return FilterAll, nil
	case "stale":
		return FilterStale, nil
	case "heavy":
		return FilterHeavy, nil
	}
	return FilterAll, fmt.Errorf("invalid filter %q: must be all, stale, or heavy", s)
}

// SortOption selects the query sort key. Ties always break by display name;
// the direction flag flips the whole ordering.
type SortOption int

const (
	SortByName SortOption = iota
	SortByMemory
	SortByCPU
	SortByStaleness
	SortByLastActive
)

func (s SortOption) String() string {
	switch s {
	case SortByMemory:
		return "memory"
	case SortByCPU:
		return "cpu"
	case SortByStaleness:
		return "staleness"
	case SortByLastActive:
		return "lastactive"
	default:
		return "name"
	}
}

// ParseSort converts a user-supplied sort key name.
func ParseSort(s string) (SortOption, error) {
	switch s {
	case "", "name":
		return SortByName, nil
	case "memory", "mem":
		return SortByMemory, nil
	case "cpu":
		return SortByCPU, nil
	case "staleness", "score":
		return SortByStaleness, nil
	case "lastactive", "active":
		return SortByLastActive, nil
	}
	return SortByName, fmt.Errorf("invalid sort %q: must be name, memory, cpu, staleness, or lastactive", s)
}
