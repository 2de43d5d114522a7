// Package actions performs activate/hide/quit against the operating system,
// enforcing the protection guard around termination. Actions race freely with
// in-flight refreshes; the tracker's merge-by-identity rule reconciles any
// divergence on the next enumeration.
package actions

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/blackwell-systems/appsweep/internal/logging"
	"github.com/blackwell-systems/appsweep/internal/procs"
	"github.com/blackwell-systems/appsweep/internal/track"
)

// ErrPermissionDenied is returned by Quit for protected and system apps. The
// store is left untouched.
var ErrPermissionDenied = errors.New("app is protected or a system app")

// ActionFailure reports an OS-rejected action, typically because the target
// process already exited. It is a non-fatal warning: the next refresh removes
// the stale identity.
type ActionFailure struct {
	Op  string
	App string
	Err error
}

func (e *ActionFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.App, e.Err)
}

func (e *ActionFailure) Unwrap() error { return e.Err }

// Executor forwards app actions to the OS controller and keeps the tracker
// optimistically in sync for quits.
type Executor struct {
	ctrl    procs.Controller
	tracker *track.Tracker
	log     *logging.Logger
}

// New creates an executor over the given OS controller and tracker.
func New(ctrl procs.Controller, tracker *track.Tracker, log *logging.Logger) *Executor {
	if log == nil {
		log = logging.NewNop()
	}
	return &Executor{ctrl: ctrl, tracker: tracker, log: log}
}

// Activate brings the app to the foreground. Forwarded unconditionally.
func (e *Executor) Activate(ctx context.Context, id string) error {
	if err := e.ctrl.Activate(ctx, id); err != nil {
		e.log.Warn("activate failed", zap.String("app", id), zap.Error(err))
		return &ActionFailure{Op: "activate", App: id, Err: err}
	}
	return nil
}

// Hide hides the app's windows. Forwarded unconditionally.
func (e *Executor) Hide(ctx context.Context, id string) error {
	if err := e.ctrl.Hide(ctx, id); err != nil {
		e.log.Warn("hide failed", zap.String("app", id), zap.Error(err))
		return &ActionFailure{Op: "hide", App: id, Err: err}
	}
	return nil
}

// Quit requests termination of the app. Protected and system apps fail with
// ErrPermissionDenied before anything reaches the OS. On success the app is
// optimistically removed from the tracker; the next refresh either confirms
// the exit or reverts the removal.
func (e *Executor) Quit(ctx context.Context, id string) error {
	app, ok := e.tracker.Get(id)
	if !ok {
		return &ActionFailure{Op: "quit", App: id, Err: errors.New("app is not tracked")}
	}
	if !app.Terminable() {
		return fmt.Errorf("quit %s: %w", app.DisplayName, ErrPermissionDenied)
	}

	if err := e.ctrl.Terminate(ctx, id); err != nil {
		e.log.Warn("terminate failed", zap.String("app", id), zap.Error(err))
		return &ActionFailure{Op: "quit", App: id, Err: err}
	}

	e.tracker.RemoveOptimistic(id)
	e.log.Info("quit requested",
		zap.String("app", app.DisplayName),
		zap.Uint64("memory_bytes", app.MemoryBytes))
	return nil
}
