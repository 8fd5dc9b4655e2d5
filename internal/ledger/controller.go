// Package ledger orchestrates the persistence port, the analytics
// engines and the CSV codec behind a single controller. The controller
// is single-caller: operations are invoked one at a time and each one
// completes its cache refresh before returning.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mertd/kalori/internal/cred"
	"github.com/mertd/kalori/internal/csvio"
	"github.com/mertd/kalori/internal/estimate"
	"github.com/mertd/kalori/internal/stats"
	"github.com/mertd/kalori/internal/store"
)

const (
	MinDailyGoal = 500
	MaxDailyGoal = 10000
)

var (
	// ErrValidation marks input rejected before any write.
	ErrValidation = errors.New("invalid input")
	// ErrNotReady is returned when an operation requires a completed setup.
	ErrNotReady = errors.New("ledger is not ready")
)

// Persistence is the port the controller writes through. *store.Store
// satisfies it; tests may substitute their own.
type Persistence interface {
	UserExists() (bool, error)
	GetUser() (*store.Profile, error)
	SaveUser(name string, dailyGoal int) (*store.Profile, error)
	UpdateUser(name string, dailyGoal int) (*store.Profile, error)
	AddEntry(description string, calories int, loggedAt time.Time) (*store.Entry, error)
	AddEntries(entries []store.Entry) (int, error)
	UpdateEntry(id int64, description string, calories int, loggedAt time.Time) (*store.Entry, error)
	DeleteEntry(id int64) error
	EntriesForDate(day time.Time) ([]store.Entry, error)
	ListEntries(f store.EntryFilter) ([]store.Entry, error)
	CountEntries() (int, error)
	SumCalories() (int, error)
	SumCaloriesForDate(day time.Time) (int, error)
	DistinctEntryDates() ([]time.Time, error)
	FirstEntryDate() (*time.Time, error)
	ClearAll() error
}

// EstimatorFactory builds the remote estimation collaborator from a
// stored API key.
type EstimatorFactory func(ctx context.Context, apiKey string) (estimate.Estimator, error)

// Controller owns the ledger state machine and the cached today view.
type Controller struct {
	db           Persistence
	creds        cred.Store
	newEstimator EstimatorFactory

	now func() time.Time

	estimator estimate.Estimator
	snap      Snapshot
	subs      []func(Snapshot)
}

func New(db Persistence, creds cred.Store, factory EstimatorFactory) *Controller {
	return &Controller{
		db:           db,
		creds:        creds,
		newEstimator: factory,
		now:          time.Now,
		snap:         Snapshot{Phase: PhaseUninitialized},
	}
}

// Subscribe registers fn to receive every snapshot published after a
// state transition or mutation.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.subs = append(c.subs, fn)
}

// Current returns the latest snapshot.
func (c *Controller) Current() Snapshot {
	return c.snap
}

func (c *Controller) publish() {
	for _, fn := range c.subs {
		fn(c.snap)
	}
}

// Initialize resolves first-launch state and, when a profile exists,
// loads it together with today's entries.
func (c *Controller) Initialize() error {
	c.snap = Snapshot{Phase: PhaseLoading}
	c.publish()

	exists, err := c.db.UserExists()
	if err != nil {
		c.snap = Snapshot{Phase: PhaseUninitialized}
		c.publish()
		return fmt.Errorf("initialize: %w", err)
	}
	if !exists {
		c.snap = Snapshot{Phase: PhaseFirstLaunch}
		c.publish()
		return nil
	}

	profile, err := c.db.GetUser()
	if err != nil {
		c.snap = Snapshot{Phase: PhaseUninitialized}
		c.publish()
		return fmt.Errorf("initialize: %w", err)
	}
	c.snap = Snapshot{Phase: PhaseReady, Profile: profile}
	return c.refreshToday()
}

// CompleteSetup validates and persists the profile and credential, then
// transitions to Ready.
func (c *Controller) CompleteSetup(name string, dailyGoal int, apiKey string) error {
	if c.snap.Phase != PhaseFirstLaunch {
		return fmt.Errorf("complete setup: %w (phase %s)", ErrNotReady, c.snap.Phase)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if dailyGoal < MinDailyGoal || dailyGoal > MaxDailyGoal {
		return fmt.Errorf("%w: daily goal must be between %d and %d", ErrValidation, MinDailyGoal, MaxDailyGoal)
	}

	profile, err := c.db.SaveUser(name, dailyGoal)
	if err != nil {
		return fmt.Errorf("complete setup: %w", err)
	}
	if strings.TrimSpace(apiKey) != "" {
		if err := c.creds.Save(strings.TrimSpace(apiKey)); err != nil {
			return fmt.Errorf("complete setup: %w", err)
		}
	}

	c.snap = Snapshot{Phase: PhaseReady, Profile: profile}
	return c.refreshToday()
}

// UpdateProfile changes the name and daily goal in place.
func (c *Controller) UpdateProfile(name string, dailyGoal int) error {
	if err := c.requireReady("update profile"); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if dailyGoal < MinDailyGoal || dailyGoal > MaxDailyGoal {
		return fmt.Errorf("%w: daily goal must be between %d and %d", ErrValidation, MinDailyGoal, MaxDailyGoal)
	}

	profile, err := c.db.UpdateUser(name, dailyGoal)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	c.snap.Profile = profile
	return c.refreshToday()
}

// AddEntry persists one entry and refreshes the today cache before
// returning, so a follow-up read sees the write.
func (c *Controller) AddEntry(description string, calories int, loggedAt time.Time) (*store.Entry, error) {
	if err := c.requireReady("add entry"); err != nil {
		return nil, err
	}
	description, calories, err := validateEntry(description, calories)
	if err != nil {
		return nil, err
	}
	if loggedAt.IsZero() {
		loggedAt = c.now()
	}

	entry, err := c.db.AddEntry(description, calories, loggedAt)
	if err != nil {
		return nil, fmt.Errorf("add entry: %w", err)
	}
	return entry, c.refreshToday()
}

// UpdateEntry replaces an entry's fields, keeping its id.
func (c *Controller) UpdateEntry(id int64, description string, calories int, loggedAt time.Time) (*store.Entry, error) {
	if err := c.requireReady("update entry"); err != nil {
		return nil, err
	}
	description, calories, err := validateEntry(description, calories)
	if err != nil {
		return nil, err
	}

	entry, err := c.db.UpdateEntry(id, description, calories, loggedAt)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return entry, c.refreshToday()
}

func (c *Controller) DeleteEntry(id int64) error {
	if err := c.requireReady("delete entry"); err != nil {
		return err
	}
	if err := c.db.DeleteEntry(id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return c.refreshToday()
}

// Statistics composes persistence aggregates with the streak engine.
func (c *Controller) Statistics() (Statistics, error) {
	if err := c.requireReady("statistics"); err != nil {
		return Statistics{}, err
	}

	count, err := c.db.CountEntries()
	if err != nil {
		return Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	total, err := c.db.SumCalories()
	if err != nil {
		return Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	first, err := c.db.FirstEntryDate()
	if err != nil {
		return Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	dates, err := c.db.DistinctEntryDates()
	if err != nil {
		return Statistics{}, fmt.Errorf("statistics: %w", err)
	}

	now := c.now()
	return Statistics{
		EntryCount:    count,
		TotalCalories: total,
		AverageDaily:  stats.AverageDaily(total, first, now),
		CurrentStreak: stats.CurrentStreak(dates, now),
		LongestStreak: stats.LongestStreak(dates),
	}, nil
}

// WeeklyReport summarizes the week starting at weekStart against the
// profile's daily goal.
func (c *Controller) WeeklyReport(weekStart time.Time) (stats.WeeklySummary, error) {
	if err := c.requireReady("weekly report"); err != nil {
		return stats.WeeklySummary{}, err
	}

	from := stats.WeekStartOf(weekStart)
	to := from.AddDate(0, 0, 7)
	entries, err := c.db.ListEntries(store.EntryFilter{From: &from, To: &to})
	if err != nil {
		return stats.WeeklySummary{}, fmt.Errorf("weekly report: %w", err)
	}

	totals := stats.DailyTotals(entries, from, to)
	return stats.WeeklyView(from, totals, c.snap.Profile.DailyGoal), nil
}

// MoveWeek returns the week start delta weeks away from current.
// Navigation into a week starting at or after tomorrow is a no-op.
func (c *Controller) MoveWeek(current time.Time, delta int) time.Time {
	current = stats.WeekStartOf(current)
	candidate := current.AddDate(0, 0, 7*delta)
	if delta > 0 && !stats.CanMoveToWeek(candidate, c.now()) {
		return current
	}
	return candidate
}

// ExportCSV renders every entry, ascending by timestamp.
func (c *Controller) ExportCSV() (string, error) {
	if err := c.requireReady("export"); err != nil {
		return "", err
	}
	entries, err := c.db.ListEntries(store.EntryFilter{})
	if err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return csvio.Encode(entries), nil
}

// ImportCSV decodes text and persists the accepted rows as one atomic
// batch, returning how many rows were accepted. Invalid rows are
// dropped silently; csvio.ErrUnreadable is passed through when the text
// cannot be tokenized at all.
func (c *Controller) ImportCSV(text string) (int, error) {
	if err := c.requireReady("import"); err != nil {
		return 0, err
	}

	entries, err := csvio.Decode(text)
	if err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	accepted, err := c.db.AddEntries(entries)
	if err != nil {
		return 0, fmt.Errorf("import: %w", err)
	}
	return accepted, c.refreshToday()
}

// ClearAll erases the profile, every entry and the stored credential,
// returning the controller to first-launch state.
func (c *Controller) ClearAll() error {
	if err := c.requireReady("clear all"); err != nil {
		return err
	}
	if err := c.db.ClearAll(); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	if err := c.creds.DeleteAll(); err != nil {
		return fmt.Errorf("clear all: %w", err)
	}
	c.estimator = nil
	c.snap = Snapshot{Phase: PhaseFirstLaunch}
	c.publish()
	return nil
}

// EstimateCalories asks the remote collaborator for an estimate. It
// never mutates ledger state; typed estimate errors are surfaced for a
// manual fallback.
func (c *Controller) EstimateCalories(ctx context.Context, description string, image []byte) (int, error) {
	if err := c.requireReady("estimate"); err != nil {
		return 0, err
	}

	if c.estimator == nil {
		key, err := c.creds.Read()
		if errors.Is(err, cred.ErrNotFound) {
			return 0, estimate.ErrInvalidKey
		}
		if err != nil {
			return 0, fmt.Errorf("estimate: %w", err)
		}
		est, err := c.newEstimator(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("estimate: %w", err)
		}
		c.estimator = est
	}
	return c.estimator.Estimate(ctx, description, image)
}

// HasAPIKey reports whether an estimation credential is stored.
func (c *Controller) HasAPIKey() bool {
	_, err := c.creds.Read()
	return err == nil
}

// SetAPIKey replaces the stored estimation credential.
func (c *Controller) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: api key must not be empty", ErrValidation)
	}
	if err := c.creds.Save(key); err != nil {
		return fmt.Errorf("set api key: %w", err)
	}
	c.estimator = nil
	return nil
}

func (c *Controller) requireReady(op string) error {
	if c.snap.Phase != PhaseReady {
		return fmt.Errorf("%s: %w (phase %s)", op, ErrNotReady, c.snap.Phase)
	}
	return nil
}

func validateEntry(description string, calories int) (string, int, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", 0, fmt.Errorf("%w: description must not be empty", ErrValidation)
	}
	if calories <= 0 {
		return "", 0, fmt.Errorf("%w: calories must be > 0", ErrValidation)
	}
	return description, calories, nil
}

// refreshToday rebuilds the cached today view from the store and
// publishes the new snapshot.
func (c *Controller) refreshToday() error {
	today := stats.DayOf(c.now())
	entries, err := c.db.EntriesForDate(today)
	if err != nil {
		return fmt.Errorf("refresh today: %w", err)
	}
	total, err := c.db.SumCaloriesForDate(today)
	if err != nil {
		return fmt.Errorf("refresh today: %w", err)
	}

	c.snap = Snapshot{
		Phase:      c.snap.Phase,
		Profile:    c.snap.Profile,
		Today:      entries,
		TodayTotal: total,
	}
	c.publish()
	return nil
}
