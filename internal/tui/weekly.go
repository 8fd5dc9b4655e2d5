package tui

import (
	"fmt"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mertd/kalori/internal/ledger"
	"github.com/mertd/kalori/internal/stats"
)

type weeklyModel struct {
	ctrl   *ledger.Controller
	width  int
	height int

	weekStart time.Time
	summary   stats.WeeklySummary
	goal      int

	chart barchart.Model
}

func newWeeklyModel(ctrl *ledger.Controller) weeklyModel {
	return weeklyModel{
		ctrl:      ctrl,
		weekStart: stats.WeekStartOf(time.Now()),
		chart:     barchart.New(60, 12),
	}
}

func (m *weeklyModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *weeklyModel) applySnapshot(snap ledger.Snapshot) {
	if snap.Profile != nil {
		m.goal = snap.Profile.DailyGoal
	}
}

func (m weeklyModel) refresh() tea.Cmd {
	weekStart := m.weekStart
	return func() tea.Msg {
		summary, err := m.ctrl.WeeklyReport(weekStart)
		if err != nil {
			return errStatus(err)
		}
		return weeklyDataMsg{weekStart: weekStart, summary: summary}
	}
}

func (m weeklyModel) update(msg tea.Msg) (weeklyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case weeklyDataMsg:
		m.weekStart = msg.weekStart
		m.summary = msg.summary
		m.buildChart()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			m.weekStart = m.ctrl.MoveWeek(m.weekStart, -1)
			return m, m.refresh()
		case key.Matches(msg, keys.Right):
			// Weeks starting in the future stay out of reach.
			m.weekStart = m.ctrl.MoveWeek(m.weekStart, 1)
			return m, m.refresh()
		}
	}
	return m, nil
}

func (m *weeklyModel) buildChart() {
	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 12
	if m.height > 30 {
		chartHeight = 16
	}

	m.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for i := 0; i < 7; i++ {
		day := m.summary.WeekStart.AddDate(0, 0, i)
		total := m.summary.DayTotals[i]

		style := lipgloss.NewStyle().Foreground(colorPrimary)
		if m.goal > 0 && total > m.goal {
			style = lipgloss.NewStyle().Foreground(colorError)
		}
		if total == 0 {
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}

		bars = append(bars, barchart.BarData{
			Label: day.Format("Mon"),
			Values: []barchart.BarValue{
				{Name: day.Format("2006-01-02"), Value: float64(total), Style: style},
			},
		})
	}

	m.chart.PushAll(bars)
	m.chart.Draw()
}

func (m weeklyModel) view() string {
	w := m.width - 4

	weekEnd := m.weekStart.AddDate(0, 0, 6)
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s - %s",
		m.weekStart.Format("Jan 02"), weekEnd.Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Weekly"), "  ", dateLabel,
	)

	s := m.summary
	summaryRows := []string{
		fmt.Sprintf("  %-20s %s", "Total", highlightStyle.Render(formatKcal(s.Total))),
		fmt.Sprintf("  %-20s %s", "Days with entries", highlightStyle.Render(fmt.Sprintf("%d", s.DaysWithEntries))),
		fmt.Sprintf("  %-20s %s", "Days over goal", warningStyle.Render(fmt.Sprintf("%d", s.DaysOverGoal))),
		fmt.Sprintf("  %-20s %s", "Days at/under goal", successStyle.Render(fmt.Sprintf("%d", s.DaysUnderGoal))),
		fmt.Sprintf("  %-20s %s", "Daily average", highlightStyle.Render(formatKcal(s.Average))),
	}

	nav := mutedStyle.Render("  ←/→: navigate weeks")

	rows := []string{header, "", m.chart.View(), ""}
	rows = append(rows, summaryRows...)
	rows = append(rows, "", nav)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
