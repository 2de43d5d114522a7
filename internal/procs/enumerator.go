// Package procs defines the operating-system process interface for appsweep:
// enumeration of running applications with their resource metrics, and the
// activate/hide/terminate controls. The rest of the engine depends only on
// the interfaces here; the gopsutil-backed system implementation lives in
// system.go.
package procs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RawAppInfo is one running application as reported by a single enumeration
// pass. It carries raw metrics only; scoring and protection state are layered
// on top by the tracking store.
type RawAppInfo struct {
	ID           string
	Name         string
	IconRef      string
	MemoryBytes  uint64
	CPUPercent   float64
	LaunchedAt   time.Time
	LastActiveAt time.Time
	IsSystemApp  bool
}

// Enumerator reads the OS list of running applications.
//
// A partial failure returns the apps that were successfully read together
// with an *EnumerationError whose Partial flag is set. Callers must not treat
// partial success as fatal: the returned slice is usable.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]RawAppInfo, error)
}

// Controller performs the OS-facing app actions. Terminate requests an
// orderly quit; confirmation that the app actually exited only arrives with
// the next enumeration.
type Controller interface {
	Activate(ctx context.Context, id string) error
	Hide(ctx context.Context, id string) error
	Terminate(ctx context.Context, id string) error
}

// EnumerationError reports a failed or partially failed OS read.
type EnumerationError struct {
	Partial bool // some apps were read successfully
	Err     error
}

func (e *EnumerationError) Error() string {
	if e.Partial {
		return fmt.Sprintf("partial enumeration: %v", e.Err)
	}
	return fmt.Sprintf("enumeration failed: %v", e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// IsPartial reports whether err is a partial enumeration failure, meaning the
// result alongside it is usable.
func IsPartial(err error) bool {
	var ee *EnumerationError
	return errors.As(err, &ee) && ee.Partial
}
