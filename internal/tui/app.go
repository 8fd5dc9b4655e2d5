package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mertd/kalori/internal/ledger"
)

// App is the root Bubble Tea model.
type App struct {
	ctrl   *ledger.Controller
	width  int
	height int

	activeView  viewState
	showHelp    bool
	firstLaunch bool

	setup    setupModel
	today    todayModel
	stats    statsModel
	weekly   weeklyModel
	settings settingsModel

	help   help.Model
	status string
}

func NewApp(ctrl *ledger.Controller) App {
	h := help.New()
	h.ShowAll = false

	return App{
		ctrl:       ctrl,
		activeView: viewToday,
		setup:      newSetupModel(ctrl),
		today:      newTodayModel(ctrl),
		stats:      newStatsModel(ctrl),
		weekly:     newWeeklyModel(ctrl),
		settings:   newSettingsModel(ctrl),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return func() tea.Msg {
		if err := a.ctrl.Initialize(); err != nil {
			return errStatus(err)
		}
		return snapshotMsg{snap: a.ctrl.Current()}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.setup.setSize(a.width, contentHeight)
		a.today.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		a.weekly.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case snapshotMsg:
		return a.applySnapshot(msg.snap)

	case setupDoneMsg:
		a.firstLaunch = false
		a.status = "Profile created"
		return a.applySnapshot(a.ctrl.Current())

	case entrySavedMsg:
		a.status = fmt.Sprintf("Saved %q (%s)", msg.entry.Description, formatKcal(msg.entry.Calories))
		return a.applySnapshot(a.ctrl.Current())

	case entryDeletedMsg:
		a.status = "Entry deleted"
		return a.applySnapshot(a.ctrl.Current())

	case importDoneMsg:
		a.status = fmt.Sprintf("Imported %d entries", msg.accepted)
		return a.applySnapshot(a.ctrl.Current())

	case clearedMsg:
		a.status = "All data deleted"
		a.activeView = viewToday
		return a.applySnapshot(a.ctrl.Current())

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		return a, nil

	case statusMsg:
		a.status = msg.text
		return a, nil

	case tea.KeyMsg:
		if a.firstLaunch {
			var cmd tea.Cmd
			a.setup, cmd = a.setup.update(msg)
			return a, cmd
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Export):
			return a, a.doExport()
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewToday
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewStats
			return a, a.stats.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewWeekly
			return a, a.weekly.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, nil
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % 4
			return a, a.refreshCurrentView()
		}
	}

	if a.firstLaunch {
		var cmd tea.Cmd
		a.setup, cmd = a.setup.update(msg)
		return a, cmd
	}
	return a.updateActiveView(msg)
}

func (a App) applySnapshot(snap ledger.Snapshot) (tea.Model, tea.Cmd) {
	switch snap.Phase {
	case ledger.PhaseFirstLaunch:
		a.firstLaunch = true
		var cmd tea.Cmd
		a.setup, cmd = a.setup.start()
		return a, cmd
	case ledger.PhaseReady:
		a.firstLaunch = false
	}

	a.today.applySnapshot(snap)
	a.weekly.applySnapshot(snap)
	a.settings.applySnapshot(snap)
	return a, nil
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewToday:
		a.today, cmd = a.today.update(msg)
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	case viewWeekly:
		a.weekly, cmd = a.weekly.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewToday:
		return a.today.formActive || a.today.estimating
	case viewSettings:
		return a.settings.formActive || a.settings.importing || a.settings.confirming
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewStats:
		return a.stats.refresh()
	case viewWeekly:
		return a.weekly.refresh()
	}
	return nil
}

func (a App) doExport() tea.Cmd {
	return func() tea.Msg {
		csv, err := a.ctrl.ExportCSV()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		home, _ := os.UserHomeDir()
		path := filepath.Join(home, fmt.Sprintf("kalori-export-%s.csv", time.Now().Format("2006-01-02")))
		if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	if a.firstLaunch {
		return a.setup.view()
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewToday:
		content = a.today.view()
	case viewStats:
		content = a.stats.view()
	case viewWeekly:
		content = a.weekly.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("kalori")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	left := footerStyle.Render(helpView)
	right := status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}
