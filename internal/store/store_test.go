package store

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// addEntry is a test helper that inserts one entry at a day/hour offset
// from now.
func addEntry(t *testing.T, s *Store, desc string, calories, dayOffset int) *Entry {
	t.Helper()
	loggedAt := time.Now().AddDate(0, 0, dayOffset)
	e, err := s.AddEntry(desc, calories, loggedAt)
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	return e
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/kalori.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen — should succeed and not re-migrate
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}
}

// ============================================================
// Entries
// ============================================================

func TestAddAndGetEntry(t *testing.T) {
	s := newTestStore(t)
	loggedAt := time.Date(2025, 1, 10, 12, 30, 0, 0, time.Local)

	e, err := s.AddEntry("Lunch", 650, loggedAt)
	if err != nil {
		t.Fatal(err)
	}
	if e.ID == 0 {
		t.Fatal("entry should get an id")
	}
	if e.Description != "Lunch" || e.Calories != 650 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if !e.LoggedAt.Equal(loggedAt) {
		t.Fatalf("timestamp = %v, want %v (minute precision round-trip)", e.LoggedAt, loggedAt)
	}
}

func TestAddEntryTruncatesToMinute(t *testing.T) {
	s := newTestStore(t)
	loggedAt := time.Date(2025, 1, 10, 12, 30, 45, 123, time.Local)

	e, err := s.AddEntry("Snack", 100, loggedAt)
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 1, 10, 12, 30, 0, 0, time.Local)
	if !e.LoggedAt.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", e.LoggedAt, want)
	}
}

func TestUpdateEntry(t *testing.T) {
	s := newTestStore(t)
	e := addEntry(t, s, "Salade", 300, 0)

	updated, err := s.UpdateEntry(e.ID, "Salad", 320, e.LoggedAt)
	if err != nil {
		t.Fatal(err)
	}
	if updated.ID != e.ID {
		t.Fatalf("update must keep the id, got %d want %d", updated.ID, e.ID)
	}
	if updated.Description != "Salad" || updated.Calories != 320 {
		t.Fatalf("unexpected entry after update: %+v", updated)
	}
}

func TestUpdateMissingEntry(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UpdateEntry(99, "x", 1, time.Now()); err == nil {
		t.Fatal("expected error for missing entry")
	}
}

func TestDeleteEntry(t *testing.T) {
	s := newTestStore(t)
	e := addEntry(t, s, "Lunch", 650, 0)

	if err := s.DeleteEntry(e.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetEntry(e.ID); err == nil {
		t.Fatal("entry should be gone")
	}
	if err := s.DeleteEntry(e.ID); err == nil {
		t.Fatal("expected error deleting twice")
	}
}

func TestAddEntriesBatch(t *testing.T) {
	s := newTestStore(t)
	batch := []Entry{
		{Description: "A", Calories: 100, LoggedAt: time.Now()},
		{Description: "B", Calories: 200, LoggedAt: time.Now()},
	}

	n, err := s.AddEntries(batch)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("inserted %d, want 2", n)
	}
	count, _ := s.CountEntries()
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestAddEntriesAtomic(t *testing.T) {
	s := newTestStore(t)
	batch := []Entry{
		{Description: "Good", Calories: 100, LoggedAt: time.Now()},
		// Violates the calories > 0 check: the whole batch must roll back.
		{Description: "Bad", Calories: 0, LoggedAt: time.Now()},
	}

	if _, err := s.AddEntries(batch); err == nil {
		t.Fatal("expected constraint error")
	}
	count, _ := s.CountEntries()
	if count != 0 {
		t.Fatalf("batch insert must be all-or-nothing, found %d entries", count)
	}
}

func TestAddEntriesEmpty(t *testing.T) {
	s := newTestStore(t)
	n, err := s.AddEntries(nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("inserted %d, want 0", n)
	}
}

func TestEntriesForDate(t *testing.T) {
	s := newTestStore(t)
	addEntry(t, s, "Today 1", 100, 0)
	addEntry(t, s, "Today 2", 200, 0)
	addEntry(t, s, "Yesterday", 300, -1)

	entries, err := s.EntriesForDate(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestListEntriesRange(t *testing.T) {
	s := newTestStore(t)
	addEntry(t, s, "Old", 100, -10)
	addEntry(t, s, "In range", 200, -2)
	addEntry(t, s, "Now", 300, 0)

	from := time.Now().AddDate(0, 0, -3)
	to := time.Now().AddDate(0, 0, -1)
	entries, err := s.ListEntries(EntryFilter{From: &from, To: &to})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Description != "In range" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestListEntriesAscending(t *testing.T) {
	s := newTestStore(t)
	addEntry(t, s, "Second", 2, 0)
	addEntry(t, s, "First", 1, -1)

	entries, err := s.ListEntries(EntryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Description != "First" {
		t.Fatalf("entries not ascending by timestamp: %+v", entries)
	}
}

// ============================================================
// Aggregates
// ============================================================

func TestCountAndSum(t *testing.T) {
	s := newTestStore(t)

	count, _ := s.CountEntries()
	sum, _ := s.SumCalories()
	if count != 0 || sum != 0 {
		t.Fatalf("empty store: count=%d sum=%d", count, sum)
	}

	addEntry(t, s, "A", 100, 0)
	addEntry(t, s, "B", 250, -1)

	count, _ = s.CountEntries()
	sum, _ = s.SumCalories()
	if count != 2 || sum != 350 {
		t.Fatalf("count=%d sum=%d, want 2/350", count, sum)
	}
}

func TestSumCaloriesForDate(t *testing.T) {
	s := newTestStore(t)
	addEntry(t, s, "Today 1", 100, 0)
	addEntry(t, s, "Today 2", 200, 0)
	addEntry(t, s, "Yesterday", 999, -1)

	sum, err := s.SumCaloriesForDate(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if sum != 300 {
		t.Fatalf("sum = %d, want 300", sum)
	}
}

func TestDistinctEntryDates(t *testing.T) {
	s := newTestStore(t)
	addEntry(t, s, "A", 100, 0)
	addEntry(t, s, "B", 100, 0) // same day, must not duplicate
	addEntry(t, s, "C", 100, -2)

	dates, err := s.DistinctEntryDates()
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 2 {
		t.Fatalf("got %d dates, want 2 (deduplicated)", len(dates))
	}
	if !dates[0].Before(dates[1]) {
		t.Fatal("dates must be ascending")
	}
	for _, d := range dates {
		if d.Hour() != 0 || d.Minute() != 0 {
			t.Fatalf("dates must be at midnight, got %v", d)
		}
	}
}

func TestFirstEntryDate(t *testing.T) {
	s := newTestStore(t)

	first, err := s.FirstEntryDate()
	if err != nil {
		t.Fatal(err)
	}
	if first != nil {
		t.Fatal("empty store must have no first date")
	}

	addEntry(t, s, "Recent", 100, 0)
	addEntry(t, s, "Oldest", 100, -5)

	first, err = s.FirstEntryDate()
	if err != nil {
		t.Fatal(err)
	}
	want := time.Now().AddDate(0, 0, -5)
	if first == nil || first.Format("2006-01-02") != want.Format("2006-01-02") {
		t.Fatalf("first = %v, want %s", first, want.Format("2006-01-02"))
	}
}

// ============================================================
// Profile
// ============================================================

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)

	exists, err := s.UserExists()
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("fresh store must have no user")
	}
	p, err := s.GetUser()
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Fatal("GetUser on fresh store must return nil")
	}

	p, err = s.SaveUser("Mert", 2000)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Mert" || p.DailyGoal != 2000 {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if p.CreatedAt.IsZero() {
		t.Fatal("created_at must be set")
	}

	exists, _ = s.UserExists()
	if !exists {
		t.Fatal("user must exist after save")
	}

	p, err = s.UpdateUser("Mert D", 2200)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Mert D" || p.DailyGoal != 2200 {
		t.Fatalf("unexpected profile after update: %+v", p)
	}
}

func TestUpdateUserMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UpdateUser("x", 2000); err == nil {
		t.Fatal("expected error updating a missing user")
	}
}

// ============================================================
// ClearAll
// ============================================================

func TestClearAll(t *testing.T) {
	s := newTestStore(t)
	addEntry(t, s, "A", 100, 0)
	if _, err := s.SaveUser("Mert", 2000); err != nil {
		t.Fatal(err)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatal(err)
	}

	count, _ := s.CountEntries()
	if count != 0 {
		t.Fatalf("entries remain after clear: %d", count)
	}
	exists, _ := s.UserExists()
	if exists {
		t.Fatal("user remains after clear")
	}
}

func TestCaloriesCheckConstraint(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AddEntry("Bad", 0, time.Now()); err == nil {
		t.Fatal("expected check constraint error")
	}
	count, _ := s.CountEntries()
	if count != 0 {
		t.Fatalf("rejected entry was stored, count=%d", count)
	}
}
