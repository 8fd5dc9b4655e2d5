package tui

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mertd/kalori/internal/ledger"
)

// setupModel is the first-launch flow: until a profile exists every
// other view is unreachable.
type setupModel struct {
	ctrl   *ledger.Controller
	width  int
	height int

	form *huh.Form

	name   *string
	goal   *string
	apiKey *string
}

func newSetupModel(ctrl *ledger.Controller) setupModel {
	n, g, k := "", "2000", ""
	return setupModel{
		ctrl:   ctrl,
		name:   &n,
		goal:   &g,
		apiKey: &k,
	}
}

func (m *setupModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m setupModel) start() (setupModel, tea.Cmd) {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Your name").Value(m.name),
			huh.NewInput().Title("Daily calorie goal").Value(m.goal).Validate(validGoal),
			huh.NewInput().Title("Gemini API key (optional)").Value(m.apiKey).EchoMode(huh.EchoModePassword),
		).Title("Welcome to kalori"),
	).WithShowHelp(true).WithShowErrors(true)
	return m, m.form.Init()
}

func (m setupModel) update(msg tea.Msg) (setupModel, tea.Cmd) {
	if m.form == nil {
		return m.start()
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		name, goalStr, apiKey := *m.name, *m.goal, *m.apiKey
		m.form = nil
		return m, func() tea.Msg {
			goal, err := strconv.Atoi(strings.TrimSpace(goalStr))
			if err != nil {
				return statusMsg{text: "Daily goal must be a number", isError: true}
			}
			if err := m.ctrl.CompleteSetup(name, goal, apiKey); err != nil {
				return errStatus(err)
			}
			return setupDoneMsg{}
		}
	}
	return m, cmd
}

func (m setupModel) view() string {
	w := m.width - 4
	if m.form == nil {
		return panelStyle.Width(w).Render(mutedStyle.Render("Loading..."))
	}
	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("First launch"), "", m.form.View(),
		),
	)
}
