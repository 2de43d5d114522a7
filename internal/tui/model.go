// Package tui implements the interactive monitor: a Bubble Tea program over
// the view model, with live refresh driven by snapshot change notifications.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/blackwell-systems/appsweep/internal/cleanup"
	"github.com/blackwell-systems/appsweep/internal/track"
	"github.com/blackwell-systems/appsweep/internal/view"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	detailStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Model represents the Bubble Tea state.
type Model struct {
	vm *view.Model

	list   list.Model
	apps   []track.TrackedApp
	search textinput.Model

	searching bool
	pending   *cleanup.Plan

	statusMsg string
	err       error

	width  int
	height int

	lastUpdated time.Time
}

// New constructs a TUI model over a view model.
func New(vm *view.Model) *Model {
	delegate := list.NewDefaultDelegate()
	lst := list.New([]list.Item{}, delegate, 0, 0)
	lst.Title = "Running apps"
	lst.SetShowHelp(false)
	lst.SetFilteringEnabled(false)
	lst.DisableQuitKeybindings()

	search := textinput.New()
	search.Placeholder = "search"
	search.CharLimit = 64

	return &Model{
		vm:        vm,
		list:      lst,
		search:    search,
		statusMsg: "Waiting for first scan…",
	}
}

// Run spins up the Bubble Tea program with sensible defaults.
func Run(vm *view.Model) error {
	prog := tea.NewProgram(New(vm), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(reloadCmd(), waitForChangeCmd(m.vm))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.height > 6 {
			m.list.SetSize(msg.Width, m.height-6)
		}

	case snapshotChangedMsg:
		m.reload()
		return m, waitForChangeCmd(m.vm)

	case reloadMsg:
		m.reload()

	case refreshDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.statusMsg = "Refreshed."
		}

	case actionDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.statusMsg = msg.what
		}
		m.reload()

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.searching = false
		m.search.Blur()
		if msg.String() == "esc" {
			m.search.SetValue("")
		}
		m.vm.SetSearchQuery(m.search.Value())
		m.reload()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.vm.SetSearchQuery(m.search.Value())
	m.reload()
	return m, cmd
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink

	case "r":
		m.statusMsg = "Refreshing…"
		return m, refreshCmd(m.vm)

	case "f":
		_, filter, _, _ := m.vm.Query()
		m.vm.SetFilter(nextFilter(filter))
		m.reload()

	case "s":
		_, _, sortBy, asc := m.vm.Query()
		m.vm.SetSort(nextSort(sortBy), asc)
		m.reload()

	case "o":
		_, _, sortBy, asc := m.vm.Query()
		m.vm.SetSort(sortBy, !asc)
		m.reload()

	case "p":
		if app := m.currentApp(); app != nil {
			m.vm.ToggleProtection(app.ID)
			m.reload()
		}

	case "enter":
		if app := m.currentApp(); app != nil {
			return m, actionCmd(m.vm.Activate, app.ID, "Activated "+app.DisplayName)
		}

	case "h":
		if app := m.currentApp(); app != nil {
			return m, actionCmd(m.vm.Hide, app.ID, "Hid "+app.DisplayName)
		}

	case "x":
		if app := m.currentApp(); app != nil {
			return m, actionCmd(m.vm.Quit, app.ID, "Quit "+app.DisplayName)
		}

	case "c":
		plan := m.vm.PrepareCleanup()
		if plan.Empty() {
			m.statusMsg = "Nothing to clean up."
			m.pending = nil
		} else {
			m.pending = &plan
			m.statusMsg = fmt.Sprintf("Cleanup: %d apps, %s reclaimable. Press y to confirm, n to cancel.",
				len(plan.Candidates), humanize.IBytes(plan.ReclaimableBytes))
		}

	case "y":
		if m.pending != nil {
			plan := *m.pending
			m.pending = nil
			m.statusMsg = "Cleaning up…"
			return m, cleanupCmd(m.vm, plan)
		}

	case "n", "esc":
		if m.pending != nil {
			m.pending = nil
			m.statusMsg = "Cleanup cancelled."
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	_, filter, sortBy, asc := m.vm.Query()
	dir := "desc"
	if asc {
		dir = "asc"
	}
	header := fmt.Sprintf("appsweep  filter=%s  sort=%s/%s  stale=%d  mem=%s",
		filter, sortBy, dir, m.vm.StaleAppCount(), m.vm.FormattedTotalMemory())
	b.WriteString(titleStyle.Render(header))
	b.WriteByte('\n')

	if m.searching {
		b.WriteString("Search: " + m.search.View())
		b.WriteByte('\n')
	}

	if m.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteByte('\n')
	}

	if len(m.list.Items()) == 0 {
		b.WriteString("No apps match the current query.\n")
	} else {
		b.WriteString(m.list.View())
		b.WriteByte('\n')
	}

	if app := m.currentApp(); app != nil {
		detail := fmt.Sprintf("%s\nmemory=%s cpu=%.1f%% score=%.2f\nlast active %s",
			app.ID,
			humanize.IBytes(app.MemoryBytes),
			app.CPUPercent,
			app.StalenessScore,
			relativeTime(app.LastActiveAt, time.Now()),
		)
		b.WriteString(detailStyle.Render(detail))
		b.WriteByte('\n')
	}

	help := "q quit • / search • f filter • s sort • o order • p protect • enter activate • h hide • x quit app • c cleanup • r refresh"
	if m.statusMsg != "" {
		help = m.statusMsg + "\n" + help
	}
	if !m.lastUpdated.IsZero() {
		help += fmt.Sprintf(" • updated %s", m.lastUpdated.Format(time.Kitchen))
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

// reload re-runs the query pipeline and rebuilds the list items, keeping the
// tracker selection in sync with the cursor.
func (m *Model) reload() {
	m.apps = m.vm.DisplayedApps()
	items := make([]list.Item, 0, len(m.apps))
	for _, app := range m.apps {
		items = append(items, appItem{app: app})
	}
	m.list.SetItems(items)
	m.lastUpdated = time.Now()
	if app := m.currentApp(); app != nil {
		m.vm.SelectApp(app.ID)
	}
}

func (m *Model) currentApp() *track.TrackedApp {
	if len(m.apps) == 0 {
		return nil
	}
	idx := m.list.Index()
	if idx < 0 || idx >= len(m.apps) {
		return nil
	}
	return &m.apps[idx]
}

// appItem adapts track.TrackedApp to the bubbles list item interface.
type appItem struct {
	app track.TrackedApp
}

func (i appItem) Title() string {
	var marks []string
	if i.app.IsProtected {
		marks = append(marks, "protected")
	}
	if i.app.IsSystemApp {
		marks = append(marks, "system")
	}
	if i.app.IsStale {
		marks = append(marks, "stale")
	}
	if i.app.IsHeavy {
		marks = append(marks, "heavy")
	}
	suffix := ""
	if len(marks) > 0 {
		suffix = " [" + strings.Join(marks, ",") + "]"
	}
	return i.app.DisplayName + suffix
}

func (i appItem) Description() string {
	return fmt.Sprintf("%s • %.1f%% cpu • score %.2f",
		humanize.IBytes(i.app.MemoryBytes), i.app.CPUPercent, i.app.StalenessScore)
}

func (i appItem) FilterValue() string { return i.app.DisplayName }

func nextFilter(f track.FilterOption) track.FilterOption {
	switch f {
	case track.FilterAll:
		return track.FilterStale
	case track.FilterStale:
		return track.FilterHeavy
	default:
		return track.FilterAll
	}
}

func nextSort(s track.SortOption) track.SortOption {
	switch s {
	case track.SortByName:
		return track.SortByMemory
	case track.SortByMemory:
		return track.SortByCPU
	case track.SortByCPU:
		return track.SortByStaleness
	case track.SortByStaleness:
		return track.SortByLastActive
	default:
		return track.SortByName
	}
}

func relativeTime(t, now time.Time) string {
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

type snapshotChangedMsg struct{}

type reloadMsg struct{}

type refreshDoneMsg struct{ err error }

type actionDoneMsg struct {
	what string
	err  error
}

func reloadCmd() tea.Cmd {
	return func() tea.Msg { return reloadMsg{} }
}

// waitForChangeCmd blocks on the snapshot change channel; the returned
// message re-arms itself from Update.
func waitForChangeCmd(vm *view.Model) tea.Cmd {
	return func() tea.Msg {
		<-vm.Changes()
		return snapshotChangedMsg{}
	}
}

func refreshCmd(vm *view.Model) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return refreshDoneMsg{err: vm.Refresh(ctx)}
	}
}

func actionCmd(fn func(context.Context, string) error, id, what string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return actionDoneMsg{what: what, err: fn(ctx, id)}
	}
}

func cleanupCmd(vm *view.Model, plan cleanup.Plan) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		res := vm.ExecuteCleanup(ctx, plan)
		if len(res.Failed) > 0 {
			return actionDoneMsg{err: fmt.Errorf("cleanup: %d of %d apps failed to quit",
				len(res.Failed), len(plan.Candidates))}
		}
		return actionDoneMsg{what: fmt.Sprintf("Cleanup done: quit %d apps.", len(res.Quit))}
	}
}
