// Package config loads appsweep configuration from a TOML file and supports
// hot-reload: edits to the file are detected via fsnotify and pushed into the
// running engine (scoring thresholds, weights, refresh interval) without a
// restart.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/blackwell-systems/appsweep/internal/score"
)

// Config is the on-disk configuration. Zero values fall back to defaults on
// load, so a partial config file is fine.
type Config struct {
	Refresh RefreshConfig `toml:"refresh"`
	Scoring ScoringConfig `toml:"scoring"`
}

// RefreshConfig controls the scheduler.
type RefreshConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// ScoringConfig controls the staleness scorer.
type ScoringConfig struct {
	StaleThresholdSeconds int     `toml:"stale_threshold_seconds"`
	HeavyThresholdMB      int     `toml:"heavy_threshold_mb"`
	IdleWeight            float64 `toml:"idle_weight"`
	MemoryWeight          float64 `toml:"memory_weight"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Refresh: RefreshConfig{IntervalSeconds: 5},
		Scoring: ScoringConfig{
			StaleThresholdSeconds: int(score.DefaultStaleThreshold.Seconds()),
			HeavyThresholdMB:      score.DefaultHeavyThresholdBytes / (1024 * 1024),
			IdleWeight:            score.DefaultIdleWeight,
			MemoryWeight:          score.DefaultMemoryWeight,
		},
	}
}

// Load reads the config file at path. A missing file yields the defaults; a
// present file has its zero-valued fields defaulted and is then validated.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Decode over a zero struct so we can tell absent fields from explicit
	// zero values, then overlay onto the defaults.
	var file Config
	if err := toml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if file.Refresh.IntervalSeconds != 0 {
		cfg.Refresh.IntervalSeconds = file.Refresh.IntervalSeconds
	}
	if file.Scoring.StaleThresholdSeconds != 0 {
		cfg.Scoring.StaleThresholdSeconds = file.Scoring.StaleThresholdSeconds
	}
	if file.Scoring.HeavyThresholdMB != 0 {
		cfg.Scoring.HeavyThresholdMB = file.Scoring.HeavyThresholdMB
	}
	if file.Scoring.IdleWeight != 0 || file.Scoring.MemoryWeight != 0 {
		cfg.Scoring.IdleWeight = file.Scoring.IdleWeight
		cfg.Scoring.MemoryWeight = file.Scoring.MemoryWeight
	}

	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration, delegating scoring rules to
// score.Config.Validate.
func (c Config) Validate() error {
	if c.Refresh.IntervalSeconds <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %d", c.Refresh.IntervalSeconds)
	}
	return c.ScoreConfig().Validate()
}

// Interval returns the refresh interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

// ScoreConfig converts the scoring section for the scorer.
func (c Config) ScoreConfig() score.Config {
	return score.Config{
		StaleThreshold:      time.Duration(c.Scoring.StaleThresholdSeconds) * time.Second,
		HeavyThresholdBytes: uint64(c.Scoring.HeavyThresholdMB) * 1024 * 1024,
		IdleWeight:          c.Scoring.IdleWeight,
		MemoryWeight:        c.Scoring.MemoryWeight,
	}
}
