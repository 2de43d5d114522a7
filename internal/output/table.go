// Package output provides terminal output utilities for appsweep: ASCII
// tables for tracked apps and cleanup plans, a progress bar for bulk
// operations, and a spinner for enumeration. Tables use ANSI color codes
// gated on TTY detection and NO_COLOR.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/appsweep/internal/cleanup"
	"github.com/blackwell-systems/appsweep/internal/track"
)

// ANSI color codes for score tier display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func colorize(color, text string) string {
	if !IsColorEnabled() {
		return text
	}
	return color + text + colorReset
}

// RenderAppTable renders the tracked apps as returned by a query, one row
// per app with its metrics, flags, and staleness score.
func RenderAppTable(apps []track.TrackedApp, now time.Time) string {
	if len(apps) == 0 {
		return "No apps match the current query.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-28s %10s %7s %-14s %6s %-6s\n",
		"NAME", "MEMORY", "CPU", "LAST ACTIVE", "SCORE", "FLAGS"))
	sb.WriteString(strings.Repeat("-", 78) + "\n")

	for _, a := range apps {
		score := fmt.Sprintf("%.2f", a.StalenessScore)
		sb.WriteString(fmt.Sprintf("%-28s %10s %6.1f%% %-14s %6s %-6s\n",
			truncate(a.DisplayName, 28),
			humanize.IBytes(a.MemoryBytes),
			a.CPUPercent,
			formatRelativeTime(a.LastActiveAt, now),
			colorize(scoreColor(a.StalenessScore), score),
			flags(a),
		))
	}

	sb.WriteString(fmt.Sprintf("\n%d apps, %s total\n",
		len(apps), humanize.IBytes(track.TotalMemory(apps))))
	return sb.String()
}

// RenderPlanTable renders a cleanup plan preview: the candidates in
// execution order and the reclaimable memory footer.
func RenderPlanTable(plan cleanup.Plan, now time.Time) string {
	if plan.Empty() {
		return "Nothing to clean up: no stale, unprotected apps.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-28s %10s %-14s %6s\n",
		"NAME", "MEMORY", "LAST ACTIVE", "SCORE"))
	sb.WriteString(strings.Repeat("-", 62) + "\n")

	for _, a := range plan.Candidates {
		sb.WriteString(fmt.Sprintf("%-28s %10s %-14s %6s\n",
			truncate(a.DisplayName, 28),
			humanize.IBytes(a.MemoryBytes),
			formatRelativeTime(a.LastActiveAt, now),
			colorize(scoreColor(a.StalenessScore), fmt.Sprintf("%.2f", a.StalenessScore)),
		))
	}

	sb.WriteString(fmt.Sprintf("\n%d candidates, %s reclaimable\n",
		len(plan.Candidates), humanize.IBytes(plan.ReclaimableBytes)))
	return sb.String()
}

// scoreColor maps a staleness score to a display color: strong cleanup
// candidates red, borderline yellow, active apps green.
func scoreColor(score float64) string {
	switch {
	case score >= 0.8:
		return colorRed
	case score >= 0.5:
		return colorYellow
	default:
		return colorGreen
	}
}

// flags renders the per-app marker column: P protected, S system, * stale,
// H heavy.
func flags(a track.TrackedApp) string {
	var b strings.Builder
	if a.IsProtected {
		b.WriteByte('P')
	}
	if a.IsSystemApp {
		b.WriteByte('S')
	}
	if a.IsStale {
		b.WriteByte('*')
	}
	if a.IsHeavy {
		b.WriteByte('H')
	}
	return b.String()
}

// formatRelativeTime renders a timestamp as a short "Xm ago" style string.
func formatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
