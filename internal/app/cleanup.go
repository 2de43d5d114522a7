package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/appsweep/internal/output"
)

var (
	cleanupDryRun bool
	cleanupYes    bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Quit every stale, unprotected app",
	Long: `Build a cleanup plan from the current snapshot and execute it.

Candidates are apps past the staleness threshold that are neither
protected nor system processes, quit in score order (most stale first).
The plan is shown before anything is quit; confirmation is required
unless --yes is passed.

Apps that fail to quit (already exited, or protected between planning
and execution) are reported and skipped; the rest of the plan still
runs.`,
	Example: `  # Preview only
  appsweep cleanup --dry-run

  # Quit without the confirmation prompt
  appsweep cleanup --yes`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "show the plan without quitting anything")
	cleanupCmd.Flags().BoolVarP(&cleanupYes, "yes", "y", false, "skip the confirmation prompt")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	if err := eng.vm.Refresh(cmd.Context()); err != nil {
		return fmt.Errorf("failed to enumerate apps: %w", err)
	}

	plan := eng.vm.PrepareCleanup()
	fmt.Print(output.RenderPlanTable(plan, time.Now()))
	if plan.Empty() || cleanupDryRun {
		return nil
	}

	if !cleanupYes && !confirm(fmt.Sprintf("Quit %d apps and reclaim %s?",
		len(plan.Candidates), humanize.IBytes(plan.ReclaimableBytes))) {
		fmt.Println("Aborted.")
		return nil
	}

	// Each successful quit swaps the snapshot, so change notifications drive
	// the bar. Failed quits produce no change; Finish tops the bar off.
	bar := output.NewProgress(len(plan.Candidates), "Quitting stale apps")
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		changes := eng.tracker.Changes()
		for {
			select {
			case <-changes:
				bar.Increment()
			case <-stop:
				return
			}
		}
	}()

	result := eng.vm.ExecuteCleanup(cmd.Context(), plan)
	close(stop)
	wg.Wait()
	bar.Finish()

	fmt.Printf("Quit %d of %d apps.\n", len(result.Quit), len(plan.Candidates))
	for id, err := range result.Failed {
		name := id
		if app, ok := eng.tracker.Get(id); ok {
			name = app.DisplayName
		}
		fmt.Printf("  failed: %s: %v\n", name, err)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("cleanup finished with %d failures", len(result.Failed))
	}
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
