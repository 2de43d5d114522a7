package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blackwell-systems/appsweep/internal/config"
	"github.com/blackwell-systems/appsweep/internal/tui"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live interactive monitor",
	Long: `Run the interactive monitor: apps refresh on an interval, the display
updates on every snapshot change, and keys drive search, filter, sort,
protection, and the guarded app actions.

Edits to the config file apply live; no restart needed. Scoring weights
and the refresh interval are re-read on change, invalid edits are logged
and skipped.

Keys:
  /        search by name
  f        cycle filter (all, stale, heavy)
  s        cycle sort key    o  flip sort order
  p        toggle protection on the highlighted app
  enter    activate          h  hide    x  quit app
  c        prepare cleanup (y confirms, n cancels)
  r        refresh now       q  quit the monitor`,
	Example: `  appsweep watch
  appsweep watch --interval 10s`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "refresh interval (overrides config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	if watchInterval > 0 {
		eng.scheduler.SetInterval(watchInterval)
	}
	eng.scheduler.Start()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	go func() {
		err := config.Watch(ctx, eng.cfgPath, eng.log, func(cfg config.Config) {
			eng.tracker.SetScoreConfig(cfg.ScoreConfig())
			if watchInterval <= 0 {
				eng.scheduler.SetInterval(cfg.Interval())
			}
		})
		if err != nil && ctx.Err() == nil {
			eng.log.Warn("config watcher stopped", zap.Error(err))
		}
	}()

	if err := tui.Run(eng.vm); err != nil {
		return fmt.Errorf("monitor failed: %w", err)
	}
	return nil
}
