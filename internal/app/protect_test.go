package app

import (
	"strings"
	"testing"

	"github.com/blackwell-systems/appsweep/internal/track"
)

func snapshotOf(apps ...track.TrackedApp) *track.Snapshot {
	return &track.Snapshot{Apps: apps}
}

func TestResolveAppByIdentity(t *testing.T) {
	snap := snapshotOf(
		track.TrackedApp{ID: "/Applications/Slack.app/Contents/MacOS/Slack", DisplayName: "Slack"},
		track.TrackedApp{ID: "/Applications/Notes.app/Contents/MacOS/Notes", DisplayName: "Notes"},
	)

	app, err := resolveApp(snap, "/Applications/Slack.app/Contents/MacOS/Slack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.DisplayName != "Slack" {
		t.Errorf("resolved wrong app: %s", app.DisplayName)
	}
}

func TestResolveAppByName(t *testing.T) {
	snap := snapshotOf(
		track.TrackedApp{ID: "/a/slack", DisplayName: "Slack"},
		track.TrackedApp{ID: "/a/notes", DisplayName: "Notes"},
	)

	app, err := resolveApp(snap, "slack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.ID != "/a/slack" {
		t.Errorf("resolved wrong app: %s", app.ID)
	}
}

func TestResolveAppBySubstring(t *testing.T) {
	snap := snapshotOf(
		track.TrackedApp{ID: "/a/terminal", DisplayName: "Terminal"},
		track.TrackedApp{ID: "/a/notes", DisplayName: "Notes"},
	)

	app, err := resolveApp(snap, "term")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.DisplayName != "Terminal" {
		t.Errorf("resolved wrong app: %s", app.DisplayName)
	}
}

func TestResolveAppAmbiguous(t *testing.T) {
	snap := snapshotOf(
		track.TrackedApp{ID: "/a/notes", DisplayName: "Notes"},
		track.TrackedApp{ID: "/a/sticky", DisplayName: "Sticky Notes"},
	)

	_, err := resolveApp(snap, "note")
	if err == nil {
		t.Fatal("expected an ambiguity error")
	}
	if !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolveAppExactNameBeatsSubstring(t *testing.T) {
	snap := snapshotOf(
		track.TrackedApp{ID: "/a/notes", DisplayName: "Notes"},
		track.TrackedApp{ID: "/a/sticky", DisplayName: "Sticky Notes"},
	)

	app, err := resolveApp(snap, "notes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.ID != "/a/notes" {
		t.Errorf("expected exact name match to win, got %s", app.ID)
	}
}

func TestResolveAppNoMatch(t *testing.T) {
	snap := snapshotOf(track.TrackedApp{ID: "/a/notes", DisplayName: "Notes"})

	if _, err := resolveApp(snap, "browser"); err == nil {
		t.Fatal("expected an error for an unknown app")
	}
}
