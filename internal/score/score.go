// Package score computes staleness scores for running applications.
//
// The score is a normalized [0,1] value combining how long an app has been
// idle with how much memory it holds. Higher scores mark stronger cleanup
// candidates. Scoring is a pure function of the app's metrics, the clock, and
// a Config; it never fails on valid input.
package score

import (
	"fmt"
	"math"
	"time"
)

// Default thresholds and weights. An app idle longer than the stale threshold
// is classified stale; one holding more memory than the heavy threshold is
// classified heavy.
const (
	DefaultStaleThreshold      = 30 * time.Minute
	DefaultHeavyThresholdBytes = 500 * 1024 * 1024

	DefaultIdleWeight   = 0.7
	DefaultMemoryWeight = 0.3
)

// weightEpsilon is the tolerance for the weight-sum check.
const weightEpsilon = 1e-9

// Config holds scoring thresholds and weights.
type Config struct {
	StaleThreshold      time.Duration
	HeavyThresholdBytes uint64
	IdleWeight          float64
	MemoryWeight        float64
}

// DefaultConfig returns the stock scoring configuration.
func DefaultConfig() Config {
	return Config{
		StaleThreshold:      DefaultStaleThreshold,
		HeavyThresholdBytes: DefaultHeavyThresholdBytes,
		IdleWeight:          DefaultIdleWeight,
		MemoryWeight:        DefaultMemoryWeight,
	}
}

// Validate checks that thresholds are positive and the weights sum to 1.
func (c Config) Validate() error {
	if c.StaleThreshold <= 0 {
		return fmt.Errorf("stale threshold must be positive, got %v", c.StaleThreshold)
	}
	if c.HeavyThresholdBytes == 0 {
		return fmt.Errorf("heavy threshold must be positive")
	}
	if c.IdleWeight < 0 || c.MemoryWeight < 0 {
		return fmt.Errorf("weights must be non-negative, got idle=%v memory=%v", c.IdleWeight, c.MemoryWeight)
	}
	if math.Abs(c.IdleWeight+c.MemoryWeight-1) > weightEpsilon {
		return fmt.Errorf("weights must sum to 1, got idle=%v memory=%v", c.IdleWeight, c.MemoryWeight)
	}
	return nil
}

// Result is the outcome of scoring a single app.
type Result struct {
	Score float64 // normalized [0,1]
	Stale bool    // idle longer than the stale threshold
	Heavy bool    // memory above the heavy threshold
}

// Compute scores an app from its memory usage and last-activity time.
// Negative idle durations (clock skew) clamp to zero.
func Compute(memoryBytes uint64, lastActiveAt, now time.Time, cfg Config) Result {
	idle := now.Sub(lastActiveAt)
	if idle < 0 {
		idle = 0
	}

	normIdle := math.Min(idle.Seconds()/cfg.StaleThreshold.Seconds(), 1)
	normMem := math.Min(float64(memoryBytes)/float64(cfg.HeavyThresholdBytes), 1)

	return Result{
		Score: cfg.IdleWeight*normIdle + cfg.MemoryWeight*normMem,
		Stale: idle > cfg.StaleThreshold,
		Heavy: memoryBytes > cfg.HeavyThresholdBytes,
	}
}
