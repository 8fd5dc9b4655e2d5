package tui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mertd/kalori/internal/ledger"
)

type settingsModel struct {
	ctrl   *ledger.Controller
	width  int
	height int

	profile *profileView

	formActive bool
	form       *huh.Form

	importing  bool
	importForm *huh.Form

	confirming  bool
	confirmForm *huh.Form

	// Form values as pointers (survive value copies)
	name       *string
	goal       *string
	apiKey     *string
	importPath *string
	confirmed  *bool
}

type profileView struct {
	name      string
	goal      int
	createdAt string
	hasKey    bool
}

func newSettingsModel(ctrl *ledger.Controller) settingsModel {
	n, g, k, p := "", "", "", ""
	c := false
	return settingsModel{
		ctrl:       ctrl,
		name:       &n,
		goal:       &g,
		apiKey:     &k,
		importPath: &p,
		confirmed:  &c,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s *settingsModel) applySnapshot(snap ledger.Snapshot) {
	if snap.Profile == nil {
		s.profile = nil
		return
	}
	s.profile = &profileView{
		name:      snap.Profile.Name,
		goal:      snap.Profile.DailyGoal,
		createdAt: snap.Profile.CreatedAt.Format("Jan 02, 2006"),
		hasKey:    s.ctrl.HasAPIKey(),
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateProfileForm(msg)
	}
	if s.importing && s.importForm != nil {
		return s.updateImportForm(msg)
	}
	if s.confirming && s.confirmForm != nil {
		return s.updateConfirmForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Enter):
			return s.showProfileForm()
		case key.Matches(msg, keys.Import):
			return s.showImportForm()
		case key.Matches(msg, keys.Delete):
			return s.showConfirmForm()
		}
	}
	return s, nil
}

func (s settingsModel) showProfileForm() (settingsModel, tea.Cmd) {
	if s.profile == nil {
		return s, nil
	}
	*s.name = s.profile.name
	*s.goal = strconv.Itoa(s.profile.goal)
	*s.apiKey = ""

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(s.name),
			huh.NewInput().Title("Daily goal (kcal)").Value(s.goal).Validate(validGoal),
			huh.NewInput().Title("Gemini API key (blank to keep)").Value(s.apiKey).EchoMode(huh.EchoModePassword),
		).Title("Profile"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateProfileForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		name, goalStr, apiKey := *s.name, *s.goal, *s.apiKey
		return s, func() tea.Msg {
			goal, err := strconv.Atoi(strings.TrimSpace(goalStr))
			if err != nil {
				return statusMsg{text: "Daily goal must be a number", isError: true}
			}
			if err := s.ctrl.UpdateProfile(name, goal); err != nil {
				return errStatus(err)
			}
			if strings.TrimSpace(apiKey) != "" {
				if err := s.ctrl.SetAPIKey(apiKey); err != nil {
					return errStatus(err)
				}
			}
			return statusMsg{text: "Profile updated"}
		}
	}
	return s, cmd
}

func (s settingsModel) showImportForm() (settingsModel, tea.Cmd) {
	*s.importPath = ""
	s.importForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("CSV file to import").Value(s.importPath),
		).Title("Import"),
	).WithShowHelp(true)
	s.importing = true
	return s, s.importForm.Init()
}

func (s settingsModel) updateImportForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.importing = false
			s.importForm = nil
			return s, nil
		}
	}

	form, cmd := s.importForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.importForm = f
	}

	if s.importForm.State == huh.StateCompleted {
		s.importing = false
		path := strings.TrimSpace(*s.importPath)
		return s, s.doImport(path)
	}
	return s, cmd
}

func (s settingsModel) doImport(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Import error: %v", err), isError: true}
		}
		accepted, err := s.ctrl.ImportCSV(string(data))
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Import error: %v", err), isError: true}
		}
		return importDoneMsg{accepted: accepted}
	}
}

func (s settingsModel) showConfirmForm() (settingsModel, tea.Cmd) {
	*s.confirmed = false
	s.confirmForm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete all data?").
				Description("Erases the profile, every entry and the stored API key.").
				Value(s.confirmed),
		),
	).WithShowHelp(true)
	s.confirming = true
	return s, s.confirmForm.Init()
}

func (s settingsModel) updateConfirmForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.confirming = false
			s.confirmForm = nil
			return s, nil
		}
	}

	form, cmd := s.confirmForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.confirmForm = f
	}

	if s.confirmForm.State == huh.StateCompleted {
		s.confirming = false
		if !*s.confirmed {
			return s, nil
		}
		return s, func() tea.Msg {
			if err := s.ctrl.ClearAll(); err != nil {
				return errStatus(err)
			}
			return clearedMsg{}
		}
	}
	return s, cmd
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Settings"), "", s.form.View()),
		)
	}
	if s.importing && s.importForm != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Import CSV"), "", s.importForm.View()),
		)
	}
	if s.confirming && s.confirmForm != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Clear all data"), "", s.confirmForm.View()),
		)
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Settings"))
	rows = append(rows, "")

	if s.profile != nil {
		line := func(label, value string) string {
			return fmt.Sprintf("  %s %s",
				lipgloss.NewStyle().Width(20).Render(label),
				highlightStyle.Render(value))
		}
		keyState := mutedStyle.Render("not set")
		if s.profile.hasKey {
			keyState = successStyle.Render("set")
		}
		rows = append(rows,
			line("Name", s.profile.name),
			line("Daily goal", formatKcal(s.profile.goal)),
			line("Member since", s.profile.createdAt),
			fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(20).Render("Gemini API key"), keyState),
		)
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: edit profile  e: export csv  i: import csv  d: delete all data"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func validGoal(v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n < ledger.MinDailyGoal || n > ledger.MaxDailyGoal {
		return fmt.Errorf("must be between %d and %d", ledger.MinDailyGoal, ledger.MaxDailyGoal)
	}
	return nil
}
