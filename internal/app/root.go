package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
	verbose    bool

	// RootCmd is the root command for appsweep
	RootCmd = &cobra.Command{
		Use:   "appsweep",
		Short: "Monitor running apps and reclaim memory from stale ones",
		Long: `appsweep watches the apps running on your machine, scores each one by
how stale it is (idle time weighed against memory footprint), and helps
you quit the ones you forgot about.

Protected apps and system processes are never quit; protection survives
restarts.

Quick Start:
  1. appsweep apps              # one-shot list, staleness first
  2. appsweep protect Slack     # keep an app off the chopping block
  3. appsweep cleanup --dry-run # preview what a cleanup would quit
  4. appsweep watch             # live interactive monitor

Examples:
  # Stale apps only, biggest memory hogs first
  appsweep apps --filter stale --sort memory

  # Quit every stale, unprotected app after confirmation
  appsweep cleanup

  # Engine status and protection inventory
  appsweep status`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("appsweep: staleness monitor for running apps")
			fmt.Println()
			fmt.Println("Run 'appsweep apps' to list running apps.")
			fmt.Println("Run 'appsweep watch' for the live monitor.")
			fmt.Println("Run 'appsweep --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.appsweep/appsweep.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ~/.appsweep/config.toml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(appsCmd)
	RootCmd.AddCommand(protectCmd)
	RootCmd.AddCommand(unprotectCmd)
	RootCmd.AddCommand(cleanupCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(statusCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// getDBPath returns the database path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}

	dir, err := appsweepDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "appsweep.db"), nil
}

// getConfigPath returns the config file path, using the flag value or default.
// The file does not have to exist; defaults apply when it is missing.
func getConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}

	dir, err := appsweepDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func appsweepDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ".appsweep")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create appsweep directory: %w", err)
	}
	return dir, nil
}
