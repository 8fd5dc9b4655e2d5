package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mertd/kalori/internal/ledger"
)

type statsModel struct {
	ctrl   *ledger.Controller
	width  int
	height int

	stats ledger.Statistics
}

func newStatsModel(ctrl *ledger.Controller) statsModel {
	return statsModel{ctrl: ctrl}
}

func (s *statsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s statsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		st, err := s.ctrl.Statistics()
		if err != nil {
			return errStatus(err)
		}
		return statsDataMsg{stats: st}
	}
}

func (s statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	if msg, ok := msg.(statsDataMsg); ok {
		s.stats = msg.stats
	}
	return s, nil
}

func (s statsModel) view() string {
	w := s.width - 4

	line := func(label string, value string) string {
		return fmt.Sprintf("  %s %s",
			lipgloss.NewStyle().Width(22).Render(label),
			highlightStyle.Render(value))
	}

	streak := func(days int) string {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}

	rows := []string{
		titleStyle.Render("Statistics"),
		"",
		line("Entries logged", fmt.Sprintf("%d", s.stats.EntryCount)),
		line("Total calories", formatKcal(s.stats.TotalCalories)),
		line("Daily average", formatKcal(s.stats.AverageDaily)),
		"",
		line("Current streak", streak(s.stats.CurrentStreak)),
		line("Longest streak", streak(s.stats.LongestStreak)),
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
