package app

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/appsweep/internal/track"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine status and protection inventory",
	Long: `Print a one-shot summary: tracked app count, stale and heavy counts,
total memory in view, protected apps, and the active thresholds.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	if err := eng.vm.Refresh(cmd.Context()); err != nil {
		return fmt.Errorf("failed to enumerate apps: %w", err)
	}

	snap := eng.tracker.Current()
	var stale, heavy, protected int
	for _, a := range snap.Apps {
		if a.IsStale {
			stale++
		}
		if a.IsHeavy {
			heavy++
		}
		if a.IsProtected {
			protected++
		}
	}

	fmt.Println("appsweep status")
	fmt.Println()
	fmt.Printf("  Tracked apps:    %d\n", len(snap.Apps))
	fmt.Printf("  Stale:           %d\n", stale)
	fmt.Printf("  Heavy:           %d\n", heavy)
	fmt.Printf("  Total memory:    %s\n", humanize.IBytes(track.TotalMemory(snap.Apps)))
	fmt.Printf("  Snapshot taken:  %s\n", snap.TakenAt.Format(time.RFC3339))
	if snap.Partial {
		fmt.Println("  Last read:       partial (some processes unreadable)")
	}
	fmt.Println()

	sc := eng.tracker.ScoreConfig()
	fmt.Printf("  Stale threshold:  %s idle\n", sc.StaleThreshold)
	fmt.Printf("  Heavy threshold:  %s\n", humanize.IBytes(sc.HeavyThresholdBytes))
	fmt.Printf("  Weights:          idle %.2f / memory %.2f\n", sc.IdleWeight, sc.MemoryWeight)
	fmt.Printf("  Refresh interval: %s\n", eng.scheduler.Interval())
	fmt.Println()

	// The store is authoritative for protection so apps that are not
	// currently running still show up.
	stored, err := eng.store.LoadProtected()
	if err != nil {
		return fmt.Errorf("failed to load protected apps: %w", err)
	}
	if len(stored) == 0 {
		fmt.Println("  No protected apps.")
		return nil
	}
	fmt.Printf("  Protected apps (%d, %d running):\n", len(stored), protected)
	for _, a := range snap.Apps {
		if a.IsProtected {
			fmt.Printf("    %s (%s)\n", a.DisplayName, a.ID)
			delete(stored, a.ID)
		}
	}
	for id := range stored {
		fmt.Printf("    %s (not running)\n", id)
	}
	return nil
}
