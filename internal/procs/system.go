package procs

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// System enumerates and controls applications through the OS process table.
// Processes are grouped by executable identity so that one TrackedApp exists
// per running application regardless of helper subprocesses, and protection
// state keyed by that identity survives app restarts.
//
// Activity observation: the OS only tells us which app is frontmost right
// now, so System remembers the last enumeration at which each identity was
// observed in the foreground. lastActiveAt therefore advances only on
// observed activity, never on mere polling.
type System struct {
	mu         sync.Mutex
	lastActive map[string]time.Time
}

// NewSystem creates a system-backed enumerator and controller.
func NewSystem() *System {
	return &System{lastActive: make(map[string]time.Time)}
}

// appAccum aggregates the processes that share one application identity.
type appAccum struct {
	name        string
	exe         string
	memoryBytes uint64
	cpuPercent  float64
	launchedAt  time.Time
	pids        []int32
}

// Enumerate reads the process table and returns one RawAppInfo per distinct
// application identity. Per-process read errors (typically permission denied
// on other users' processes) degrade to a partial result.
func (s *System) Enumerate(ctx context.Context) ([]RawAppInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, &EnumerationError{Err: fmt.Errorf("reading process table: %w", err)}
	}

	now := time.Now()
	byIdentity := make(map[string]*appAccum)
	var failed int

	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			failed++
			continue
		}
		exe, _ := p.ExeWithContext(ctx)

		id := identityFor(name, exe)
		acc, ok := byIdentity[id]
		if !ok {
			acc = &appAccum{name: name, exe: exe}
			byIdentity[id] = acc
		}
		acc.pids = append(acc.pids, p.Pid)

		if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
			acc.memoryBytes += mem.RSS
		}
		if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
			acc.cpuPercent += cpu
		}
		if createMS, err := p.CreateTimeWithContext(ctx); err == nil {
			created := time.UnixMilli(createMS)
			if acc.launchedAt.IsZero() || created.Before(acc.launchedAt) {
				acc.launchedAt = created
			}
		}
	}

	front := s.frontmostIdentity(ctx)

	s.mu.Lock()
	apps := make([]RawAppInfo, 0, len(byIdentity))
	for id, acc := range byIdentity {
		if acc.launchedAt.IsZero() {
			acc.launchedAt = now
		}
		if front != "" && isFrontmost(id, front) {
			s.lastActive[id] = now
		}
		lastActive, ok := s.lastActive[id]
		if !ok {
			// Never observed in the foreground: treat launch as the last
			// known activity.
			lastActive = acc.launchedAt
		}
		apps = append(apps, RawAppInfo{
			ID:           id,
			Name:         acc.name,
			IconRef:      acc.exe,
			MemoryBytes:  acc.memoryBytes,
			CPUPercent:   acc.cpuPercent,
			LaunchedAt:   acc.launchedAt,
			LastActiveAt: lastActive,
			IsSystemApp:  IsSystemApp(acc.name, acc.exe),
		})
	}
	// Forget identities that exited so a relaunch starts fresh.
	for id := range s.lastActive {
		if _, live := byIdentity[id]; !live {
			delete(s.lastActive, id)
		}
	}
	s.mu.Unlock()

	if len(apps) == 0 && failed > 0 {
		return nil, &EnumerationError{Err: fmt.Errorf("all %d processes unreadable", failed)}
	}
	if failed > 0 {
		return apps, &EnumerationError{Partial: true, Err: fmt.Errorf("%d processes unreadable", failed)}
	}
	return apps, nil
}

// Activate brings the identified app to the foreground.
func (s *System) Activate(ctx context.Context, id string) error {
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("activate is not supported on %s", runtime.GOOS)
	}
	script := fmt.Sprintf("tell application %q to activate", displayNameOf(id))
	return runOSAScript(ctx, script)
}

// Hide hides the identified app's windows.
func (s *System) Hide(ctx context.Context, id string) error {
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("hide is not supported on %s", runtime.GOOS)
	}
	script := fmt.Sprintf("tell application \"System Events\" to set visible of process %q to false", displayNameOf(id))
	return runOSAScript(ctx, script)
}

// Terminate requests an orderly quit of every process carrying the identity.
// The next enumeration confirms whether the app actually exited.
func (s *System) Terminate(ctx context.Context, id string) error {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return fmt.Errorf("reading process table: %w", err)
	}

	var terminated int
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		exe, _ := p.ExeWithContext(ctx)
		if identityFor(name, exe) != id {
			continue
		}
		if err := p.TerminateWithContext(ctx); err != nil {
			return fmt.Errorf("terminating pid %d: %w", p.Pid, err)
		}
		terminated++
	}
	if terminated == 0 {
		return fmt.Errorf("no running process for %s", id)
	}
	return nil
}

// identityFor derives the stable application identity. The executable path is
// preferred; the bare process name is the fallback when the path is
// unreadable.
func identityFor(name, exe string) string {
	if exe != "" {
		return exe
	}
	return name
}

// displayNameOf recovers an app name from an identity for scripting calls.
func displayNameOf(id string) string {
	base := filepath.Base(id)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// isFrontmost reports whether an identity belongs to the frontmost app. The
// OS reports the .app bundle path while identities are the executable path
// inside the bundle, so a prefix match covers the bundle case.
func isFrontmost(id, front string) bool {
	if id == front {
		return true
	}
	return strings.HasPrefix(id, strings.TrimSuffix(front, "/")+"/")
}

// frontmostIdentity returns the identity of the foreground app, or "" when it
// cannot be determined. Failure degrades silently: activity simply is not
// observed this pass.
func (s *System) frontmostIdentity(ctx context.Context) string {
	if runtime.GOOS != "darwin" {
		return ""
	}
	out, err := exec.CommandContext(ctx, "osascript", "-e",
		`tell application "System Events" to get the POSIX path of (application file of first process whose frontmost is true)`).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func runOSAScript(ctx context.Context, script string) error {
	if err := exec.CommandContext(ctx, "osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("osascript: %w", err)
	}
	return nil
}
