package ledger

import "github.com/mertd/kalori/internal/store"

// Phase is the controller lifecycle state.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseLoading
	PhaseFirstLaunch
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoading:
		return "loading"
	case PhaseFirstLaunch:
		return "first-launch"
	case PhaseReady:
		return "ready"
	}
	return "unknown"
}

// Snapshot is an immutable view of the ledger after an operation: the
// current phase, the profile, and the cached "today" slice. A new
// snapshot is produced after every mutation, so any observer sees the
// post-write state immediately.
type Snapshot struct {
	Phase      Phase
	Profile    *store.Profile
	Today      []store.Entry
	TodayTotal int
}

// Statistics is the all-time summary composed from persistence
// aggregates and the streak engine.
type Statistics struct {
	EntryCount    int
	TotalCalories int
	AverageDaily  int
	CurrentStreak int
	LongestStreak int
}
