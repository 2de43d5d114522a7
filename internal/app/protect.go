package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/appsweep/internal/track"
)

var protectCmd = &cobra.Command{
	Use:   "protect <app>",
	Short: "Protect an app from cleanup",
	Long: `Mark a running app as protected. Protected apps are excluded from
cleanup plans and refuse quit requests until unprotected. Protection is
keyed by the app's executable path and survives restarts of both the app
and appsweep.

The argument is matched against running apps: exact identity first, then
exact name (case-insensitive), then a unique name substring.`,
	Example: `  appsweep protect Slack
  appsweep protect /Applications/Slack.app/Contents/MacOS/Slack`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProtect(cmd, args[0], true)
	},
}

var unprotectCmd = &cobra.Command{
	Use:     "unprotect <app>",
	Short:   "Remove protection from an app",
	Example: `  appsweep unprotect Slack`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProtect(cmd, args[0], false)
	},
}

func runProtect(cmd *cobra.Command, arg string, protect bool) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	if err := eng.vm.Refresh(cmd.Context()); err != nil {
		return fmt.Errorf("failed to enumerate apps: %w", err)
	}

	app, err := resolveApp(eng.tracker.Current(), arg)
	if err != nil {
		return err
	}

	if app.IsProtected == protect {
		if protect {
			fmt.Printf("%s is already protected.\n", app.DisplayName)
		} else {
			fmt.Printf("%s is not protected.\n", app.DisplayName)
		}
		return nil
	}

	eng.tracker.ToggleProtection(app.ID)
	if protect {
		fmt.Printf("Protected %s.\n", app.DisplayName)
	} else {
		fmt.Printf("Unprotected %s.\n", app.DisplayName)
	}
	return nil
}

// resolveApp matches a user-supplied argument against the snapshot: exact
// identity, exact name, then unique name substring.
func resolveApp(snap *track.Snapshot, arg string) (track.TrackedApp, error) {
	if app, ok := snap.Lookup(arg); ok {
		return app, nil
	}

	lower := strings.ToLower(arg)
	for _, a := range snap.Apps {
		if strings.ToLower(a.DisplayName) == lower {
			return a, nil
		}
	}

	var matches []track.TrackedApp
	for _, a := range snap.Apps {
		if strings.Contains(strings.ToLower(a.DisplayName), lower) {
			matches = append(matches, a)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return track.TrackedApp{}, fmt.Errorf("no running app matches %q", arg)
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.DisplayName
		}
		return track.TrackedApp{}, fmt.Errorf("%q is ambiguous: matches %s", arg, strings.Join(names, ", "))
	}
}
