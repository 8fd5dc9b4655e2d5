// Package stats computes streaks, averages and per-day aggregates from
// logged entries. Everything here is pure: no I/O, no failure modes.
package stats

import (
	"math"
	"sort"
	"time"
)

// DayOf truncates a timestamp to its local calendar date (midnight).
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// CurrentStreak counts consecutive calendar days with at least one entry,
// ending today or yesterday. A streak whose most recent day is older than
// yesterday has lapsed and counts as 0. Callers must pass deduplicated
// dates; order does not matter.
func CurrentStreak(dates []time.Time, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	days := make([]time.Time, len(dates))
	for i, d := range dates {
		days[i] = DayOf(d)
	}
	sort.Slice(days, func(i, j int) bool { return days[j].Before(days[i]) })

	today = DayOf(today)
	yesterday := today.AddDate(0, 0, -1)
	if !sameDay(days[0], today) && !sameDay(days[0], yesterday) {
		return 0
	}

	streak := 1
	prev := days[0]
	for _, d := range days[1:] {
		if !sameDay(d, prev.AddDate(0, 0, -1)) {
			break
		}
		streak++
		prev = d
	}
	return streak
}

// LongestStreak returns the length of the longest run of consecutive
// calendar days anywhere in the set.
func LongestStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	days := make([]time.Time, len(dates))
	for i, d := range dates {
		days[i] = DayOf(d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if sameDay(days[i], days[i-1].AddDate(0, 0, 1)) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// AverageDaily is the all-time average: total calories divided by the
// number of days between the first entry and now, inclusive. Returns 0
// when there is no first entry or no calories at all.
func AverageDaily(totalCalories int, firstEntry *time.Time, now time.Time) int {
	if firstEntry == nil || totalCalories == 0 {
		return 0
	}
	days := daysBetween(DayOf(*firstEntry), DayOf(now)) + 1
	if days < 1 {
		days = 1
	}
	return int(math.Round(float64(totalCalories) / float64(days)))
}

// daysBetween counts calendar days from a to b, ignoring DST-induced
// partial days.
func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}
