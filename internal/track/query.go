package track

import (
	"sort"
	"strings"
)

// Query runs the search → filter → sort pipeline over the current snapshot.
func (t *Tracker) Query(search string, filter FilterOption, sortBy SortOption, ascending bool) []TrackedApp {
	return QueryApps(t.Current().Apps, search, filter, sortBy, ascending)
}

// QueryApps is the pure query pipeline: case-insensitive substring match on
// the display name (empty search matches all), then the filter option, then a
// sort by the chosen key with ties broken by display name. The direction flag
// flips the entire ordering, so descending-then-ascending is an exact
// reversal.
func QueryApps(apps []TrackedApp, search string, filter FilterOption, sortBy SortOption, ascending bool) []TrackedApp {
	needle := strings.ToLower(strings.TrimSpace(search))

	var out []TrackedApp
	for _, a := range apps {
		if needle != "" && !strings.Contains(strings.ToLower(a.DisplayName), needle) {
			continue
		}
		switch filter {
		case FilterStale:
			if !a.IsStale {
				continue
			}
		case FilterHeavy:
			if !a.IsHeavy {
				continue
			}
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := compareApps(out[i], out[j], sortBy)
		if !ascending {
			c = -c
		}
		return c < 0
	})
	return out
}

// compareApps orders two apps by the sort key, then by display name, then by
// id so the ordering is total.
func compareApps(a, b TrackedApp, sortBy SortOption) int {
	var c int
	switch sortBy {
	case SortByMemory:
		c = compareUint64(a.MemoryBytes, b.MemoryBytes)
	case SortByCPU:
		c = compareFloat64(a.CPUPercent, b.CPUPercent)
	case SortByStaleness:
		c = compareFloat64(a.StalenessScore, b.StalenessScore)
	case SortByLastActive:
		c = a.LastActiveAt.Compare(b.LastActiveAt)
	}
	if c != 0 {
		return c
	}
	if c = strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// TotalMemory sums the memory of a query result.
func TotalMemory(apps []TrackedApp) uint64 {
	var total uint64
	for _, a := range apps {
		total += a.MemoryBytes
	}
	return total
}
