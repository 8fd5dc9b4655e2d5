package tui

import (
	"fmt"
	"time"

	"github.com/mertd/kalori/internal/ledger"
	"github.com/mertd/kalori/internal/stats"
	"github.com/mertd/kalori/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewToday viewState = iota
	viewStats
	viewWeekly
	viewSettings
)

var viewNames = []string{"Today", "Statistics", "Weekly", "Settings"}

// --- Messages ---

type snapshotMsg struct {
	snap ledger.Snapshot
}

type entrySavedMsg struct {
	entry *store.Entry
}

type entryDeletedMsg struct{}

type statsDataMsg struct {
	stats ledger.Statistics
}

type weeklyDataMsg struct {
	weekStart time.Time
	summary   stats.WeeklySummary
}

type estimateMsg struct {
	description string
	calories    int
	err         error
}

type exportDoneMsg struct {
	path string
}

type importDoneMsg struct {
	accepted int
}

type setupDoneMsg struct{}

type clearedMsg struct{}

type statusMsg struct {
	text    string
	isError bool
}

// --- Helpers ---

func errStatus(err error) statusMsg {
	return statusMsg{text: err.Error(), isError: true}
}

func formatKcal(calories int) string {
	return fmt.Sprintf("%d kcal", calories)
}
