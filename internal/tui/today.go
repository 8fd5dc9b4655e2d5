package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/mertd/kalori/internal/estimate"
	"github.com/mertd/kalori/internal/ledger"
	"github.com/mertd/kalori/internal/store"
)

type todayModel struct {
	ctrl   *ledger.Controller
	width  int
	height int

	entries    []store.Entry
	todayTotal int
	goal       int
	cursor     int

	formActive bool
	form       *huh.Form
	editingID  int64 // 0 when creating
	editingAt  time.Time
	desc       *string
	cal        *string

	estimating bool
	estForm    *huh.Form
	estDesc    *string
}

func newTodayModel(ctrl *ledger.Controller) todayModel {
	d, c, ed := "", "", ""
	return todayModel{
		ctrl:    ctrl,
		desc:    &d,
		cal:     &c,
		estDesc: &ed,
	}
}

func (t *todayModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

func (t *todayModel) applySnapshot(snap ledger.Snapshot) {
	t.entries = snap.Today
	t.todayTotal = snap.TodayTotal
	if snap.Profile != nil {
		t.goal = snap.Profile.DailyGoal
	}
	if t.cursor >= len(t.entries) {
		t.cursor = len(t.entries) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

func (t todayModel) update(msg tea.Msg) (todayModel, tea.Cmd) {
	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}
	if t.estimating && t.estForm != nil {
		return t.updateEstimateForm(msg)
	}

	switch msg := msg.(type) {
	case estimateMsg:
		if msg.err != nil {
			return t, func() tea.Msg {
				return statusMsg{text: estimateErrText(msg.err), isError: true}
			}
		}
		// Prefill the entry form with the estimate.
		return t.showForm(0, msg.description, strconv.Itoa(msg.calories), time.Time{})

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if t.cursor > 0 {
				t.cursor--
			}
		case key.Matches(msg, keys.Down):
			if t.cursor < len(t.entries)-1 {
				t.cursor++
			}
		case key.Matches(msg, keys.New):
			return t.showForm(0, "", "", time.Time{})
		case key.Matches(msg, keys.Edit):
			if t.cursor < len(t.entries) {
				e := t.entries[t.cursor]
				return t.showForm(e.ID, e.Description, strconv.Itoa(e.Calories), e.LoggedAt)
			}
		case key.Matches(msg, keys.Delete):
			if t.cursor < len(t.entries) {
				id := t.entries[t.cursor].ID
				return t, t.deleteEntry(id)
			}
		case key.Matches(msg, keys.Estimate):
			return t.showEstimateForm()
		}
	}
	return t, nil
}

func (t todayModel) showForm(id int64, desc, cal string, at time.Time) (todayModel, tea.Cmd) {
	*t.desc = desc
	*t.cal = cal
	t.editingID = id
	t.editingAt = at

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Description").Value(t.desc),
			huh.NewInput().Title("Calories").Value(t.cal).Validate(validCalories),
		),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	return t, t.form.Init()
}

func (t todayModel) updateForm(msg tea.Msg) (todayModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			t.formActive = false
			t.form = nil
			return t, nil
		}
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	if t.form.State == huh.StateCompleted {
		t.formActive = false
		return t, t.saveEntry(t.editingID, *t.desc, *t.cal, t.editingAt)
	}
	return t, cmd
}

func (t todayModel) showEstimateForm() (todayModel, tea.Cmd) {
	*t.estDesc = ""
	t.estForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Describe the food").Value(t.estDesc),
		).Title("AI estimate"),
	).WithShowHelp(true)
	t.estimating = true
	return t, t.estForm.Init()
}

func (t todayModel) updateEstimateForm(msg tea.Msg) (todayModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			t.estimating = false
			t.estForm = nil
			return t, nil
		}
	}

	form, cmd := t.estForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.estForm = f
	}

	if t.estForm.State == huh.StateCompleted {
		t.estimating = false
		desc := *t.estDesc
		return t, t.runEstimate(desc)
	}
	return t, cmd
}

func (t todayModel) saveEntry(id int64, desc, cal string, at time.Time) tea.Cmd {
	return func() tea.Msg {
		calories, err := strconv.Atoi(strings.TrimSpace(cal))
		if err != nil {
			return statusMsg{text: "Calories must be a number", isError: true}
		}

		var entry *store.Entry
		if id == 0 {
			entry, err = t.ctrl.AddEntry(desc, calories, time.Time{})
		} else {
			entry, err = t.ctrl.UpdateEntry(id, desc, calories, at)
		}
		if err != nil {
			return errStatus(err)
		}
		return entrySavedMsg{entry: entry}
	}
}

func (t todayModel) deleteEntry(id int64) tea.Cmd {
	return func() tea.Msg {
		if err := t.ctrl.DeleteEntry(id); err != nil {
			return errStatus(err)
		}
		return entryDeletedMsg{}
	}
}

func (t todayModel) runEstimate(desc string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		calories, err := t.ctrl.EstimateCalories(ctx, desc, nil)
		return estimateMsg{description: desc, calories: calories, err: err}
	}
}

func (t todayModel) view() string {
	w := t.width - 4

	if t.formActive && t.form != nil {
		title := titleStyle.Render("Log entry")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", t.form.View()),
		)
	}
	if t.estimating && t.estForm != nil {
		title := titleStyle.Render("AI estimate")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", t.estForm.View()),
		)
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Today"))
	rows = append(rows, t.renderTotal())
	rows = append(rows, "")

	if len(t.entries) == 0 {
		rows = append(rows, mutedStyle.Render("  Nothing logged yet. Press n to add an entry, g for an AI estimate."))
	}
	for i, e := range t.entries {
		cursor := "  "
		style := normalItemStyle
		if i == t.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		line := fmt.Sprintf("%s%-5s  %-40s %8s",
			cursor, e.LoggedAt.Format("15:04"), truncate(e.Description, 40), formatKcal(e.Calories))
		rows = append(rows, style.Render(line))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (t todayModel) renderTotal() string {
	total := formatKcal(t.todayTotal)
	if t.goal <= 0 {
		return mutedStyle.Render(total)
	}
	label := fmt.Sprintf("%s of %s", total, formatKcal(t.goal))
	if t.todayTotal > t.goal {
		return errorStyle.Render(label + "  over goal")
	}
	return successStyle.Render(label)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func validCalories(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be > 0")
	}
	return nil
}

// estimateErrText maps typed estimation failures to actionable text.
func estimateErrText(err error) string {
	switch {
	case errors.Is(err, estimate.ErrInvalidKey):
		return "API key missing or rejected. Set it in Settings, or enter calories manually."
	case errors.Is(err, estimate.ErrRateLimited):
		return "Rate limited. Try again in a moment."
	case errors.Is(err, estimate.ErrNoNetwork):
		return "No network. Enter calories manually."
	case errors.Is(err, estimate.ErrTimeout):
		return "Estimation timed out. Enter calories manually."
	case errors.Is(err, estimate.ErrValueOutOfRange):
		return "Estimate was implausibly large. Enter calories manually."
	default:
		return "Could not estimate. Enter calories manually."
	}
}
