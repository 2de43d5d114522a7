package sched

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/appsweep/internal/logging"
	"github.com/blackwell-systems/appsweep/internal/procs"
	"github.com/blackwell-systems/appsweep/internal/score"
	"github.com/blackwell-systems/appsweep/internal/track"
)

// gateEnumerator counts Enumerate calls and optionally blocks each call until
// released, so tests can hold a cycle in flight.
type gateEnumerator struct {
	calls   atomic.Int64
	entered chan struct{}
	release chan struct{}
	apps    []procs.RawAppInfo
	err     error
}

func (g *gateEnumerator) Enumerate(ctx context.Context) ([]procs.RawAppInfo, error) {
	g.calls.Add(1)
	if g.entered != nil {
		g.entered <- struct{}{}
	}
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return g.apps, g.err
}

func newScheduler(enum procs.Enumerator, interval time.Duration) (*Scheduler, *track.Tracker) {
	tr := track.New(score.DefaultConfig(), logging.NewNop())
	return New(enum, tr, interval, logging.NewNop()), tr
}

func TestRefresh_AppliesSnapshot(t *testing.T) {
	enum := &gateEnumerator{apps: []procs.RawAppInfo{
		{ID: "a", Name: "Alpha", LastActiveAt: time.Now()},
	}}
	s, tr := newScheduler(enum, time.Hour)
	defer s.Stop()

	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, tr.Current().Apps, 1)
}

func TestRefresh_ConcurrentCallsShareOneEnumeration(t *testing.T) {
	enum := &gateEnumerator{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
		apps:    []procs.RawAppInfo{{ID: "a", Name: "Alpha", LastActiveAt: time.Now()}},
	}
	s, _ := newScheduler(enum, time.Hour)
	defer s.Stop()

	const callers = 3
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Refresh(context.Background())
		}(i)
	}

	// One caller is inside Enumerate; give the rest time to attach to the
	// in-flight cycle, then release it.
	<-enum.entered
	time.Sleep(50 * time.Millisecond)
	close(enum.release)
	wg.Wait()

	assert.Equal(t, int64(1), enum.calls.Load(), "enumerator must be invoked exactly once")
	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}
}

func TestStart_PeriodicRefresh(t *testing.T) {
	enum := &gateEnumerator{apps: []procs.RawAppInfo{
		{ID: "a", Name: "Alpha", LastActiveAt: time.Now()},
	}}
	s, tr := newScheduler(enum, 10*time.Millisecond)
	s.Start()
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for enum.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected repeated refreshes, got %d", enum.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	assert.NotEmpty(t, tr.Current().Apps)
}

func TestStop_NoRefreshAfterTeardown(t *testing.T) {
	enum := &gateEnumerator{}
	s, _ := newScheduler(enum, 10*time.Millisecond)
	s.Start()
	s.Stop()

	calls := enum.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, enum.calls.Load(), "no refresh may run after teardown")

	assert.ErrorIs(t, s.Refresh(context.Background()), ErrStopped)
}

func TestStop_CancelsInFlightEnumeration(t *testing.T) {
	enum := &gateEnumerator{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}), // never released; only ctx ends the call
	}
	s, _ := newScheduler(enum, time.Hour)

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()
	<-enum.entered

	s.Stop()

	select {
	case err := <-done:
		require.Error(t, err, "cancelled enumeration must surface an error")
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight enumeration was not cancelled by Stop")
	}
}

func TestRefresh_FullFailureKeepsLastSnapshot(t *testing.T) {
	good := &gateEnumerator{apps: []procs.RawAppInfo{
		{ID: "a", Name: "Alpha", LastActiveAt: time.Now()},
	}}
	s, tr := newScheduler(good, time.Hour)
	require.NoError(t, s.Refresh(context.Background()))
	s.Stop()

	bad := &gateEnumerator{err: &procs.EnumerationError{Err: errors.New("os read failed")}}
	s2 := New(bad, tr, time.Hour, logging.NewNop())
	defer s2.Stop()

	err := s2.Refresh(context.Background())
	require.Error(t, err)
	assert.Len(t, tr.Current().Apps, 1, "failed refresh keeps the previous snapshot")
}

func TestRefresh_PartialFailureAppliesWithCarryForward(t *testing.T) {
	now := time.Now()
	full := &gateEnumerator{apps: []procs.RawAppInfo{
		{ID: "a", Name: "Alpha", LastActiveAt: now},
		{ID: "b", Name: "Beta", LastActiveAt: now},
	}}
	s, tr := newScheduler(full, time.Hour)
	require.NoError(t, s.Refresh(context.Background()))
	s.Stop()

	partial := &gateEnumerator{
		apps: []procs.RawAppInfo{{ID: "a", Name: "Alpha", LastActiveAt: now}},
		err:  &procs.EnumerationError{Partial: true, Err: errors.New("some processes unreadable")},
	}
	s2 := New(partial, tr, time.Hour, logging.NewNop())
	defer s2.Stop()

	require.NoError(t, s2.Refresh(context.Background()), "partial success is not fatal")
	snap := tr.Current()
	assert.True(t, snap.Partial)
	assert.Len(t, snap.Apps, 2, "missing known app carried forward")
}

func TestSetInterval(t *testing.T) {
	s, _ := newScheduler(&gateEnumerator{}, time.Hour)
	defer s.Stop()

	s.SetInterval(time.Minute)
	assert.Equal(t, time.Minute, s.Interval())

	s.SetInterval(0)
	assert.Equal(t, time.Minute, s.Interval(), "non-positive interval ignored")
}
