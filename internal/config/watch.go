package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/blackwell-systems/appsweep/internal/logging"
)

// debounce absorbs the write bursts editors produce when saving a file.
const debounce = 200 * time.Millisecond

// Watch re-loads the config file whenever it changes and hands each valid
// result to onChange. Invalid edits are logged and skipped; the previous
// configuration stays in effect. Watch blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// rename-based saves (write temp, rename over) keep working.
func Watch(ctx context.Context, path string, log *logging.Logger, onChange func(Config)) error {
	if log == nil {
		log = logging.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil

			cfg, err := Load(path)
			if err != nil {
				log.Warn("config reload skipped", zap.String("path", path), zap.Error(err))
				continue
			}
			log.Info("config reloaded",
				zap.String("path", path),
				zap.Int("interval_seconds", cfg.Refresh.IntervalSeconds),
				zap.Int("stale_threshold_seconds", cfg.Scoring.StaleThresholdSeconds))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("config watcher error", zap.Error(err))
		}
	}
}
