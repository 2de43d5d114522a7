package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/blackwell-systems/appsweep/internal/actions"
	"github.com/blackwell-systems/appsweep/internal/cleanup"
	"github.com/blackwell-systems/appsweep/internal/config"
	"github.com/blackwell-systems/appsweep/internal/logging"
	"github.com/blackwell-systems/appsweep/internal/procs"
	"github.com/blackwell-systems/appsweep/internal/sched"
	"github.com/blackwell-systems/appsweep/internal/store"
	"github.com/blackwell-systems/appsweep/internal/track"
	"github.com/blackwell-systems/appsweep/internal/view"
)

// engine bundles the wired components every command works through.
type engine struct {
	cfg       config.Config
	cfgPath   string
	store     *store.Store
	tracker   *track.Tracker
	scheduler *sched.Scheduler
	vm        *view.Model
	log       *logging.Logger
}

// newEngine assembles the full pipeline: config, protection store, system
// enumerator, tracker, executor, planner, scheduler, view model. The caller
// owns the returned engine and must call close when done.
func newEngine() (*engine, error) {
	log := newLogger()

	cfgPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dbPath, err := getDBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	protected, err := st.LoadProtected()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load protected apps: %w", err)
	}

	sys := procs.NewSystem()
	tracker := track.New(cfg.ScoreConfig(), log).WithProtectionStore(st)
	tracker.SeedProtected(protected)

	executor := actions.New(sys, tracker, log)
	planner := cleanup.New(tracker, log)
	scheduler := sched.New(sys, tracker, cfg.Interval(), log)
	vm := view.New(tracker, executor, planner, scheduler)

	return &engine{
		cfg:       cfg,
		cfgPath:   cfgPath,
		store:     st,
		tracker:   tracker,
		scheduler: scheduler,
		vm:        vm,
		log:       log,
	}, nil
}

func (e *engine) close() {
	e.scheduler.Stop()
	if err := e.store.Close(); err != nil {
		e.log.Warn("failed to close database", zap.Error(err))
	}
	e.log.Sync()
}

func newLogger() *logging.Logger {
	cfg := logging.DefaultConfig()
	if verbose {
		cfg.Level = "debug"
	}
	log, err := logging.New(cfg)
	if err != nil {
		return logging.NewDefault()
	}
	return log
}
