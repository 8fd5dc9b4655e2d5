package stats

import (
	"time"

	"github.com/mertd/kalori/internal/store"
)

// WeeklySummary compares one Monday-start week against the daily goal.
// Days without entries are not classified as over or under the goal.
type WeeklySummary struct {
	WeekStart       time.Time
	Total           int
	DaysWithEntries int
	DaysOverGoal    int
	DaysUnderGoal   int
	Average         int
	// DayTotals holds Monday..Sunday calorie totals, zero for days
	// without entries.
	DayTotals [7]int
}

// DailyTotals buckets entries by local calendar date, summing calories.
// Only entries with rangeStart <= timestamp < rangeEnd are counted.
// Dates with no entries are absent from the result.
func DailyTotals(entries []store.Entry, rangeStart, rangeEnd time.Time) map[time.Time]int {
	totals := make(map[time.Time]int)
	for _, e := range entries {
		if e.LoggedAt.Before(rangeStart) || !e.LoggedAt.Before(rangeEnd) {
			continue
		}
		totals[DayOf(e.LoggedAt)] += e.Calories
	}
	return totals
}

// WeekStartOf returns the Monday of the week containing date, at local
// midnight. ISO week: Monday is day 1, Sunday day 7.
func WeekStartOf(date time.Time) time.Time {
	d := DayOf(date)
	weekday := d.Weekday()
	if weekday == time.Sunday {
		weekday = 7
	}
	return d.AddDate(0, 0, -int(weekday-time.Monday))
}

// WeeklyView summarizes the 7 days starting at weekStart against goal.
// totals is a daily-totals map as produced by DailyTotals.
func WeeklyView(weekStart time.Time, totals map[time.Time]int, goal int) WeeklySummary {
	s := WeeklySummary{WeekStart: DayOf(weekStart)}
	for i := 0; i < 7; i++ {
		day := s.WeekStart.AddDate(0, 0, i)
		total, ok := totals[day]
		if !ok {
			continue
		}
		s.DayTotals[i] = total
		s.Total += total
		s.DaysWithEntries++
		if total > goal {
			s.DaysOverGoal++
		} else {
			s.DaysUnderGoal++
		}
	}
	if s.DaysWithEntries > 0 {
		s.Average = s.Total / s.DaysWithEntries
	}
	return s
}

// CanMoveToWeek reports whether the user may navigate to the week
// starting at candidate. Weeks starting at or after tomorrow are out of
// reach; moving backwards is always allowed.
func CanMoveToWeek(candidate, now time.Time) bool {
	tomorrow := DayOf(now).AddDate(0, 0, 1)
	return DayOf(candidate).Before(tomorrow)
}
