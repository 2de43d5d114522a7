package score

import (
	"math"
	"testing"
	"time"
)

func TestCompute_StaleLightApp(t *testing.T) {
	// App idle for 40 minutes holding 300MB against the default thresholds
	// (30 min, 500MB): stale but not heavy, score 0.7*1.0 + 0.3*0.6 = 0.88.
	now := time.Now()
	lastActive := now.Add(-2400 * time.Second)

	r := Compute(300*1024*1024, lastActive, now, DefaultConfig())

	if !r.Stale {
		t.Error("expected Stale true")
	}
	if r.Heavy {
		t.Error("expected Heavy false")
	}
	if math.Abs(r.Score-0.88) > 1e-9 {
		t.Errorf("expected score 0.88, got %v", r.Score)
	}
}

func TestCompute_FreshApp(t *testing.T) {
	now := time.Now()

	r := Compute(100*1024*1024, now, now, DefaultConfig())

	if r.Stale {
		t.Error("expected Stale false for active app")
	}
	if r.Heavy {
		t.Error("expected Heavy false")
	}
	if r.Score != 0.3*(100.0/500.0) {
		t.Errorf("expected memory-only score, got %v", r.Score)
	}
}

func TestCompute_ClockSkewClampsToZero(t *testing.T) {
	now := time.Now()
	// lastActiveAt in the future (clock skew): idle clamps to 0.
	r := Compute(0, now.Add(10*time.Minute), now, DefaultConfig())

	if r.Score != 0 {
		t.Errorf("expected score 0 with future lastActiveAt and no memory, got %v", r.Score)
	}
	if r.Stale {
		t.Error("expected Stale false with clamped idle")
	}
}

func TestCompute_ScoreCapsAtOne(t *testing.T) {
	now := time.Now()
	r := Compute(50*1024*1024*1024, now.Add(-240*time.Hour), now, DefaultConfig())

	if r.Score != 1.0 {
		t.Errorf("expected capped score 1.0, got %v", r.Score)
	}
	if !r.Stale || !r.Heavy {
		t.Errorf("expected stale and heavy, got stale=%v heavy=%v", r.Stale, r.Heavy)
	}
}

func TestCompute_MonotoneInIdle(t *testing.T) {
	now := time.Now()
	cfg := DefaultConfig()
	const mem = 200 * 1024 * 1024

	prev := -1.0
	for idle := 0; idle <= 7200; idle += 60 {
		r := Compute(mem, now.Add(-time.Duration(idle)*time.Second), now, cfg)
		if r.Score < prev {
			t.Fatalf("score decreased at idle=%ds: %v < %v", idle, r.Score, prev)
		}
		prev = r.Score
	}
}

func TestCompute_MonotoneInMemory(t *testing.T) {
	now := time.Now()
	cfg := DefaultConfig()
	lastActive := now.Add(-10 * time.Minute)

	prev := -1.0
	for mb := uint64(0); mb <= 1024; mb += 32 {
		r := Compute(mb*1024*1024, lastActive, now, cfg)
		if r.Score < prev {
			t.Fatalf("score decreased at mem=%dMB: %v < %v", mb, r.Score, prev)
		}
		prev = r.Score
	}
}

func TestCompute_StaleBoundaryIsExclusive(t *testing.T) {
	now := time.Now()
	cfg := DefaultConfig()

	exactly := Compute(0, now.Add(-cfg.StaleThreshold), now, cfg)
	if exactly.Stale {
		t.Error("idle exactly at threshold should not be stale")
	}

	over := Compute(0, now.Add(-cfg.StaleThreshold-time.Second), now, cfg)
	if !over.Stale {
		t.Error("idle past threshold should be stale")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	bad := DefaultConfig()
	bad.IdleWeight = 0.5
	bad.MemoryWeight = 0.4
	if err := bad.Validate(); err == nil {
		t.Error("expected error for weights not summing to 1")
	}

	bad = DefaultConfig()
	bad.StaleThreshold = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero stale threshold")
	}

	bad = DefaultConfig()
	bad.IdleWeight = -0.2
	bad.MemoryWeight = 1.2
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative weight")
	}
}
