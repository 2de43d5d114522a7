// Package sched drives periodic and on-demand re-enumeration. At most one
// enumeration is in flight at a time: manual refresh requests arriving while
// a cycle is running attach to its completion via singleflight instead of
// issuing a second OS read, and otherwise start a cycle immediately and reset
// the interval timer.
package sched

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/blackwell-systems/appsweep/internal/logging"
	"github.com/blackwell-systems/appsweep/internal/procs"
	"github.com/blackwell-systems/appsweep/internal/track"
)

// DefaultInterval is the stock refresh period.
const DefaultInterval = 5 * time.Second

// ErrStopped is returned by Refresh after Stop: no refresh may run after
// teardown.
var ErrStopped = errors.New("scheduler stopped")

// Scheduler owns the refresh loop. Construct with New, call Start for the
// periodic timer, Stop for teardown. Refresh is safe from any goroutine.
type Scheduler struct {
	enum    procs.Enumerator
	tracker *track.Tracker
	log     *logging.Logger

	mu       sync.Mutex
	interval time.Duration

	group   singleflight.Group
	resetCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. interval <= 0 selects DefaultInterval.
func New(enum procs.Enumerator, tracker *track.Tracker, interval time.Duration, log *logging.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		enum:     enum,
		tracker:  tracker,
		log:      log,
		interval: interval,
		resetCh:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the periodic refresh loop on a background goroutine, after
// one immediate refresh so consumers never start from an empty snapshot.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.refresh()

		timer := time.NewTimer(s.Interval())
		defer timer.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-timer.C:
				s.refresh()
				timer.Reset(s.Interval())
			case <-s.resetCh:
				// A manual refresh just ran; start the interval over.
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.Interval())
			}
		}
	}()
}

// Refresh runs an on-demand cycle. Concurrent calls share one outstanding
// enumeration and all resolve to its result. A successful manual refresh
// resets the periodic timer.
func (s *Scheduler) Refresh(ctx context.Context) error {
	if s.ctx.Err() != nil {
		return ErrStopped
	}
	err := s.refresh()

	select {
	case s.resetCh <- struct{}{}:
	default:
	}

	if err == nil {
		err = ctx.Err()
	}
	return err
}

// Stop tears the scheduler down: the pending timer and any in-flight
// enumeration are cancelled together, and the loop goroutine is joined.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Interval returns the current refresh period.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the refresh period, restarting the pending timer. Used
// by config hot-reload.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()

	select {
	case s.resetCh <- struct{}{}:
	default:
	}
}

// refresh single-flights the actual cycle: timer ticks and manual requests
// that overlap share one enumeration.
func (s *Scheduler) refresh() error {
	_, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return nil, s.doRefresh()
	})
	return err
}

func (s *Scheduler) doRefresh() error {
	now := time.Now()
	apps, err := s.enum.Enumerate(s.ctx)
	if err != nil && !procs.IsPartial(err) {
		// Full failure: keep the last snapshot, retry on the next tick.
		s.log.Error("enumeration failed, keeping last snapshot", zap.Error(err))
		return err
	}
	partial := err != nil
	if partial {
		s.log.Warn("partial enumeration, carrying known apps forward", zap.Error(err))
	}

	s.tracker.ApplyRefresh(apps, now, partial)
	s.log.Debug("refresh applied",
		zap.Int("apps", len(apps)),
		zap.Bool("partial", partial),
		zap.Duration("took", time.Since(now)))
	return nil
}
