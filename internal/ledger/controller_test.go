package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mertd/kalori/internal/cred"
	"github.com/mertd/kalori/internal/csvio"
	"github.com/mertd/kalori/internal/estimate"
	"github.com/mertd/kalori/internal/stats"
	"github.com/mertd/kalori/internal/store"
)

// fakeCreds is an in-memory credential store.
type fakeCreds struct {
	key string
}

func (f *fakeCreds) Save(key string) error { f.key = key; return nil }
func (f *fakeCreds) Read() (string, error) {
	if f.key == "" {
		return "", cred.ErrNotFound
	}
	return f.key, nil
}
func (f *fakeCreds) DeleteAll() error { f.key = ""; return nil }

// fakeEstimator returns a fixed estimate or error.
type fakeEstimator struct {
	calories int
	err      error
	calls    int
}

func (f *fakeEstimator) Estimate(_ context.Context, _ string, _ []byte) (int, error) {
	f.calls++
	return f.calories, f.err
}

func newTestController(t *testing.T) (*Controller, *fakeCreds, *fakeEstimator) {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	creds := &fakeCreds{}
	est := &fakeEstimator{calories: 450}
	factory := func(ctx context.Context, apiKey string) (estimate.Estimator, error) {
		return est, nil
	}
	return New(s, creds, factory), creds, est
}

// readyController runs setup so operations are available.
func readyController(t *testing.T) (*Controller, *fakeCreds, *fakeEstimator) {
	t.Helper()
	c, creds, est := newTestController(t)
	if err := c.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := c.CompleteSetup("Mert", 2000, "test-key"); err != nil {
		t.Fatalf("complete setup: %v", err)
	}
	return c, creds, est
}

// ============================================================
// State machine
// ============================================================

func TestInitializeFirstLaunch(t *testing.T) {
	c, _, _ := newTestController(t)

	if c.Current().Phase != PhaseUninitialized {
		t.Fatalf("phase = %s, want uninitialized", c.Current().Phase)
	}
	if err := c.Initialize(); err != nil {
		t.Fatal(err)
	}
	if c.Current().Phase != PhaseFirstLaunch {
		t.Fatalf("phase = %s, want first-launch", c.Current().Phase)
	}
}

func TestInitializeWithExistingProfile(t *testing.T) {
	s, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.SaveUser("Mert", 2000); err != nil {
		t.Fatal(err)
	}

	c := New(s, &fakeCreds{}, nil)
	if err := c.Initialize(); err != nil {
		t.Fatal(err)
	}
	snap := c.Current()
	if snap.Phase != PhaseReady {
		t.Fatalf("phase = %s, want ready", snap.Phase)
	}
	if snap.Profile == nil || snap.Profile.Name != "Mert" {
		t.Fatalf("profile not loaded: %+v", snap.Profile)
	}
}

func TestCompleteSetup(t *testing.T) {
	c, creds, _ := newTestController(t)
	if err := c.Initialize(); err != nil {
		t.Fatal(err)
	}

	if err := c.CompleteSetup("Mert", 2000, "my-key"); err != nil {
		t.Fatal(err)
	}
	snap := c.Current()
	if snap.Phase != PhaseReady {
		t.Fatalf("phase = %s, want ready", snap.Phase)
	}
	if snap.Profile.DailyGoal != 2000 {
		t.Fatalf("goal = %d, want 2000", snap.Profile.DailyGoal)
	}
	if creds.key != "my-key" {
		t.Fatalf("credential not saved: %q", creds.key)
	}
}

func TestCompleteSetupValidation(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		goal     int
	}{
		{"empty name", "", 2000},
		{"whitespace name", "   ", 2000},
		{"goal too low", "Mert", 499},
		{"goal too high", "Mert", 10001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestController(t)
			if err := c.Initialize(); err != nil {
				t.Fatal(err)
			}
			err := c.CompleteSetup(tt.userName, tt.goal, "")
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if c.Current().Phase != PhaseFirstLaunch {
				t.Fatal("phase must not change on validation failure")
			}
		})
	}
}

func TestOperationsRequireReady(t *testing.T) {
	c, _, _ := newTestController(t)

	if _, err := c.AddEntry("Lunch", 500, time.Time{}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("AddEntry before init: %v", err)
	}
	if _, err := c.Statistics(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Statistics before init: %v", err)
	}
	if _, err := c.ExportCSV(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("ExportCSV before init: %v", err)
	}
}

// ============================================================
// Entry operations and the today cache
// ============================================================

func TestAddEntryRefreshesToday(t *testing.T) {
	c, _, _ := readyController(t)

	entry, err := c.AddEntry("Lunch", 650, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if entry.ID == 0 {
		t.Fatal("entry should have an id")
	}

	snap := c.Current()
	if len(snap.Today) != 1 {
		t.Fatalf("today cache has %d entries, want 1", len(snap.Today))
	}
	if snap.TodayTotal != 650 {
		t.Fatalf("today total = %d, want 650", snap.TodayTotal)
	}
}

func TestAddEntryValidation(t *testing.T) {
	c, _, _ := readyController(t)

	if _, err := c.AddEntry("  ", 100, time.Time{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty description: %v", err)
	}
	if _, err := c.AddEntry("Lunch", 0, time.Time{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero calories: %v", err)
	}
	if len(c.Current().Today) != 0 {
		t.Fatal("rejected entries must not be written")
	}
}

func TestUpdateEntryKeepsID(t *testing.T) {
	c, _, _ := readyController(t)
	entry, err := c.AddEntry("Salade", 300, time.Time{})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := c.UpdateEntry(entry.ID, "Salad", 320, entry.LoggedAt)
	if err != nil {
		t.Fatal(err)
	}
	if updated.ID != entry.ID {
		t.Fatalf("id changed: %d -> %d", entry.ID, updated.ID)
	}
	if c.Current().TodayTotal != 320 {
		t.Fatalf("today total = %d, want 320", c.Current().TodayTotal)
	}
}

func TestDeleteEntryRefreshesToday(t *testing.T) {
	c, _, _ := readyController(t)
	entry, _ := c.AddEntry("Lunch", 650, time.Time{})

	if err := c.DeleteEntry(entry.ID); err != nil {
		t.Fatal(err)
	}
	snap := c.Current()
	if len(snap.Today) != 0 || snap.TodayTotal != 0 {
		t.Fatalf("today cache not refreshed: %+v", snap)
	}
}

func TestReadYourWrites(t *testing.T) {
	c, _, _ := readyController(t)

	if _, err := c.AddEntry("Lunch", 650, time.Time{}); err != nil {
		t.Fatal(err)
	}
	st, err := c.Statistics()
	if err != nil {
		t.Fatal(err)
	}
	if st.EntryCount != 1 || st.TotalCalories != 650 {
		t.Fatalf("statistics do not reflect the write: %+v", st)
	}
	if st.CurrentStreak != 1 || st.LongestStreak != 1 {
		t.Fatalf("streaks = %d/%d, want 1/1", st.CurrentStreak, st.LongestStreak)
	}
}

func TestSubscribersSeeMutations(t *testing.T) {
	c, _, _ := readyController(t)

	var last Snapshot
	var calls int
	c.Subscribe(func(s Snapshot) {
		last = s
		calls++
	})

	if _, err := c.AddEntry("Lunch", 650, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if calls == 0 {
		t.Fatal("subscriber not notified")
	}
	if last.TodayTotal != 650 {
		t.Fatalf("subscriber saw total %d, want 650", last.TodayTotal)
	}
}

// ============================================================
// Export / import
// ============================================================

func TestExportImportRoundTrip(t *testing.T) {
	c, _, _ := readyController(t)
	loggedAt := time.Date(2025, 1, 10, 12, 30, 0, 0, time.Local)
	if _, err := c.AddEntry(`Chicken, "spicy"`, 450, loggedAt); err != nil {
		t.Fatal(err)
	}

	csv, err := c.ExportCSV()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(csv, `2025-01-10,12:30,"Chicken, ""spicy""",450`) {
		t.Fatalf("unexpected export:\n%s", csv)
	}

	accepted, err := c.ImportCSV(csv)
	if err != nil {
		t.Fatal(err)
	}
	if accepted != 1 {
		t.Fatalf("accepted = %d, want 1", accepted)
	}
	st, _ := c.Statistics()
	if st.EntryCount != 2 {
		t.Fatalf("entry count = %d, want 2 after import", st.EntryCount)
	}
}

func TestImportDropsInvalidRows(t *testing.T) {
	c, _, _ := readyController(t)

	text := "Date,Time,Description,Calories\n" +
		"2025-01-10,12:30,\"Lunch\",500\n" +
		"2025-01-10,13:00,\"Broken\",abc\n" +
		"2025-01-10,14:00,\"\",500\n"
	accepted, err := c.ImportCSV(text)
	if err != nil {
		t.Fatal(err)
	}
	if accepted != 1 {
		t.Fatalf("accepted = %d, want 1", accepted)
	}
	st, err := c.Statistics()
	if err != nil {
		t.Fatal(err)
	}
	if st.EntryCount != 1 {
		t.Fatalf("entry count = %d, want 1 (dropped rows must not be persisted)", st.EntryCount)
	}
}

func TestImportZeroRowsIsNotAnError(t *testing.T) {
	c, _, _ := readyController(t)

	accepted, err := c.ImportCSV("Date,Time,Description,Calories\n")
	if err != nil {
		t.Fatal(err)
	}
	if accepted != 0 {
		t.Fatalf("accepted = %d, want 0", accepted)
	}
}

func TestImportUnreadable(t *testing.T) {
	c, _, _ := readyController(t)

	_, err := c.ImportCSV("2025-01-10,12:30,\"unterminated,500\ngarbage")
	if !errors.Is(err, csvio.ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
	st, _ := c.Statistics()
	if st.EntryCount != 0 {
		t.Fatal("nothing may be persisted on a structural failure")
	}
}

// ============================================================
// Weekly navigation
// ============================================================

func TestWeeklyReport(t *testing.T) {
	c, _, _ := readyController(t)

	weekStart := stats.WeekStartOf(time.Now())
	if _, err := c.AddEntry("Lunch", 2200, time.Time{}); err != nil {
		t.Fatal(err)
	}

	summary, err := c.WeeklyReport(weekStart)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 2200 || summary.DaysWithEntries != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.DaysOverGoal != 1 {
		t.Fatalf("2200 against a 2000 goal must count over, got %+v", summary)
	}
}

func TestMoveWeekGuard(t *testing.T) {
	c, _, _ := readyController(t)
	thisWeek := stats.WeekStartOf(time.Now())

	back := c.MoveWeek(thisWeek, -1)
	if !back.Equal(thisWeek.AddDate(0, 0, -7)) {
		t.Fatalf("moving back = %v", back)
	}

	forward := c.MoveWeek(back, 1)
	if !forward.Equal(thisWeek) {
		t.Fatalf("moving forward to the current week = %v", forward)
	}

	// The week after the current one starts in the future: no-op.
	blocked := c.MoveWeek(thisWeek, 1)
	if !blocked.Equal(thisWeek) {
		t.Fatalf("future week must be rejected, got %v", blocked)
	}
}

// ============================================================
// Clear all, estimation
// ============================================================

func TestClearAll(t *testing.T) {
	c, creds, _ := readyController(t)
	if _, err := c.AddEntry("Lunch", 650, time.Time{}); err != nil {
		t.Fatal(err)
	}

	if err := c.ClearAll(); err != nil {
		t.Fatal(err)
	}
	snap := c.Current()
	if snap.Phase != PhaseFirstLaunch {
		t.Fatalf("phase = %s, want first-launch", snap.Phase)
	}
	if snap.Profile != nil || len(snap.Today) != 0 {
		t.Fatalf("snapshot not reset: %+v", snap)
	}
	if creds.key != "" {
		t.Fatal("credential must be erased")
	}

	// A fresh setup starts over cleanly.
	if err := c.CompleteSetup("Again", 1800, ""); err != nil {
		t.Fatal(err)
	}
	st, err := c.Statistics()
	if err != nil {
		t.Fatal(err)
	}
	if st.EntryCount != 0 {
		t.Fatalf("old entries survived: %+v", st)
	}
}

func TestEstimateCalories(t *testing.T) {
	c, _, est := readyController(t)

	calories, err := c.EstimateCalories(context.Background(), "chicken wrap", nil)
	if err != nil {
		t.Fatal(err)
	}
	if calories != 450 {
		t.Fatalf("calories = %d, want 450", calories)
	}
	if est.calls != 1 {
		t.Fatalf("estimator called %d times, want 1", est.calls)
	}
}

func TestEstimateWithoutKey(t *testing.T) {
	c, creds, _ := readyController(t)
	creds.key = ""

	_, err := c.EstimateCalories(context.Background(), "chicken wrap", nil)
	if !errors.Is(err, estimate.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestEstimateErrorLeavesStateIntact(t *testing.T) {
	c, _, est := readyController(t)
	if _, err := c.AddEntry("Lunch", 650, time.Time{}); err != nil {
		t.Fatal(err)
	}
	est.err = estimate.ErrRateLimited

	_, err := c.EstimateCalories(context.Background(), "soup", nil)
	if !errors.Is(err, estimate.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if c.Current().TodayTotal != 650 {
		t.Fatal("estimation failures must not touch ledger state")
	}
}

// ============================================================
// Profile updates
// ============================================================

func TestUpdateProfile(t *testing.T) {
	c, _, _ := readyController(t)

	if err := c.UpdateProfile("Mert D", 2500); err != nil {
		t.Fatal(err)
	}
	p := c.Current().Profile
	if p.Name != "Mert D" || p.DailyGoal != 2500 {
		t.Fatalf("profile not updated: %+v", p)
	}

	if err := c.UpdateProfile("", 2500); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty name: %v", err)
	}
}
