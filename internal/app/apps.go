package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/appsweep/internal/output"
	"github.com/blackwell-systems/appsweep/internal/track"
)

var (
	appsSearch string
	appsFilter string
	appsSort   string
	appsAsc    bool
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List running apps with staleness scores",
	Long: `Enumerate running apps once and print them with memory, CPU, idle time,
and staleness score.

The score (0.0-1.0) weighs idle time against memory footprint; apps past
the staleness threshold are flagged with * and memory-heavy apps with H.
Protected apps show P and system processes show S; neither is ever quit.

Filters:
  all    every tracked app (default)
  stale  apps past the staleness threshold
  heavy  apps past the memory threshold

Sort keys: name, memory, cpu, staleness, lastactive. Default is staleness
with the strongest cleanup candidates first; pass --asc to reverse.`,
	Example: `  # Everything, staleness first
  appsweep apps

  # Stale apps only, biggest first
  appsweep apps --filter stale --sort memory

  # Search by name fragment
  appsweep apps --search slack`,
	RunE: runApps,
}

func init() {
	appsCmd.Flags().StringVar(&appsSearch, "search", "", "case-insensitive name substring")
	appsCmd.Flags().StringVar(&appsFilter, "filter", "all", "filter: all, stale, heavy")
	appsCmd.Flags().StringVar(&appsSort, "sort", "staleness", "sort key: name, memory, cpu, staleness, lastactive")
	appsCmd.Flags().BoolVar(&appsAsc, "asc", false, "sort ascending instead of descending")
}

func runApps(cmd *cobra.Command, args []string) error {
	filter, err := track.ParseFilter(appsFilter)
	if err != nil {
		return err
	}
	sortBy, err := track.ParseSort(appsSort)
	if err != nil {
		return err
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	spinner := output.NewSpinner("Scanning running apps...")
	spinner.SetWriter(os.Stderr)
	spinner.Start()
	refreshErr := eng.vm.Refresh(cmd.Context())
	spinner.Stop()
	if refreshErr != nil {
		return fmt.Errorf("failed to enumerate apps: %w", refreshErr)
	}

	eng.vm.SetSearchQuery(appsSearch)
	eng.vm.SetFilter(filter)
	eng.vm.SetSort(sortBy, appsAsc)

	snap := eng.tracker.Current()
	if snap.Partial {
		fmt.Fprintln(os.Stderr, "Warning: some processes could not be read; results may be incomplete.")
	}

	fmt.Print(output.RenderAppTable(eng.vm.DisplayedApps(), time.Now()))
	return nil
}
