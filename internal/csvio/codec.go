// Package csvio implements the CSV interchange format for entries:
//
//	Date,Time,Description,Calories
//	2025-01-10,12:30,"Chicken, ""spicy""",450
//
// Encode is bit-exact (descriptions always quoted, LF line endings) so
// exports stay byte-compatible across versions. Decode is permissive:
// it accepts CRLF or LF, tolerates a missing header, and silently drops
// rows that fail to tokenize or fail validation.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mertd/kalori/internal/store"
)

const header = "Date,Time,Description,Calories"

// ErrUnreadable is returned by Decode when the input cannot be
// tokenized into any rows at all. It is distinct from a decode that
// simply accepts zero rows.
var ErrUnreadable = errors.New("csv: input is not readable")

// Encode renders entries as CSV, ascending by timestamp. It never fails.
func Encode(entries []store.Entry) string {
	sorted := make([]store.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LoggedAt.Before(sorted[j].LoggedAt)
	})

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for _, e := range sorted {
		b.WriteString(e.LoggedAt.Format("2006-01-02"))
		b.WriteByte(',')
		b.WriteString(e.LoggedAt.Format("15:04"))
		b.WriteByte(',')
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(e.Description, `"`, `""`))
		b.WriteByte('"')
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(e.Calories))
		b.WriteByte('\n')
	}
	return b.String()
}

// Decode parses CSV text into entries. Rows that fail to tokenize or
// fail validation are dropped without error; ErrUnreadable is reported
// only when non-empty input yields no rows at all.
func Decode(text string) ([]store.Entry, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// Row-level quoting defect: drop the record, keep reading.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		rows = append(rows, record)
	}
	if len(rows) == 0 && strings.TrimSpace(text) != "" {
		return nil, fmt.Errorf("%w: no rows could be tokenized", ErrUnreadable)
	}

	if len(rows) > 0 && isHeader(rows[0]) {
		rows = rows[1:]
	}

	var entries []store.Entry
	for _, row := range rows {
		e, ok := parseRow(row)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func isHeader(row []string) bool {
	want := strings.Split(header, ",")
	if len(row) != len(want) {
		return false
	}
	for i, field := range row {
		if !strings.EqualFold(strings.TrimSpace(field), want[i]) {
			return false
		}
	}
	return true
}

func parseRow(row []string) (store.Entry, bool) {
	if len(row) < 4 {
		return store.Entry{}, false
	}

	loggedAt, ok := parseTimestamp(row[0], row[1])
	if !ok {
		return store.Entry{}, false
	}

	description := strings.TrimSpace(row[2])
	if description == "" {
		return store.Entry{}, false
	}

	calories, err := strconv.Atoi(strings.TrimSpace(row[3]))
	if err != nil || calories <= 0 {
		return store.Entry{}, false
	}

	return store.Entry{
		Description: description,
		Calories:    calories,
		LoggedAt:    loggedAt,
	}, true
}

// parseTimestamp requires exactly 3 numeric date parts and 2 numeric
// time parts.
func parseTimestamp(date, clock string) (time.Time, bool) {
	dateParts := strings.Split(strings.TrimSpace(date), "-")
	timeParts := strings.Split(strings.TrimSpace(clock), ":")
	if len(dateParts) != 3 || len(timeParts) != 2 {
		return time.Time{}, false
	}

	nums := make([]int, 0, 5)
	for _, p := range append(dateParts, timeParts...) {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, false
		}
		nums = append(nums, n)
	}

	t := time.Date(nums[0], time.Month(nums[1]), nums[2], nums[3], nums[4], 0, 0, time.Local)
	return t, true
}
