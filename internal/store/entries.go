package store

import (
	"database/sql"
	"fmt"
	"time"
)

func (s *Store) AddEntry(description string, calories int, loggedAt time.Time) (*Entry, error) {
	now := time.Now().Format(timeLayout)
	res, err := s.db.Exec(
		`INSERT INTO entries (description, calories, logged_at, created_at) VALUES (?, ?, ?, ?)`,
		description, calories, loggedAt.Format(timeLayout), now,
	)
	if err != nil {
		return nil, fmt.Errorf("add entry: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetEntry(id)
}

// AddEntries inserts a batch of entries in a single transaction.
// Either every entry is inserted or none is.
func (s *Store) AddEntries(entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO entries (description, calories, logged_at, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Format(timeLayout)
	for _, e := range entries {
		if _, err := stmt.Exec(e.Description, e.Calories, e.LoggedAt.Format(timeLayout), now); err != nil {
			return 0, fmt.Errorf("batch insert entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch insert: %w", err)
	}
	return len(entries), nil
}

func (s *Store) UpdateEntry(id int64, description string, calories int, loggedAt time.Time) (*Entry, error) {
	res, err := s.db.Exec(
		`UPDATE entries SET description = ?, calories = ?, logged_at = ? WHERE id = ?`,
		description, calories, loggedAt.Format(timeLayout), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update entry %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update entry %d: %w", id, sql.ErrNoRows)
	}
	return s.GetEntry(id)
}

func (s *Store) DeleteEntry(id int64) error {
	res, err := s.db.Exec(`DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete entry %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (s *Store) GetEntry(id int64) (*Entry, error) {
	e := &Entry{}
	var loggedAt, createdAt string

	err := s.db.QueryRow(
		`SELECT id, description, calories, logged_at, created_at FROM entries WHERE id = ?`, id,
	).Scan(&e.ID, &e.Description, &e.Calories, &loggedAt, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	e.LoggedAt, _ = time.ParseInLocation(timeLayout, loggedAt, time.Local)
	e.CreatedAt, _ = time.ParseInLocation(timeLayout, createdAt, time.Local)
	return e, nil
}

// EntriesForDate returns all entries whose timestamp falls on the given
// local calendar date, ascending.
func (s *Store) EntriesForDate(day time.Time) ([]Entry, error) {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)
	return s.ListEntries(EntryFilter{From: &from, To: &to})
}

// ListEntries returns entries matching the filter, ascending by timestamp.
func (s *Store) ListEntries(f EntryFilter) ([]Entry, error) {
	query := `SELECT id, description, calories, logged_at, created_at FROM entries WHERE 1=1`
	var args []any

	if f.From != nil {
		query += ` AND logged_at >= ?`
		args = append(args, f.From.Format(timeLayout))
	}
	if f.To != nil {
		query += ` AND logged_at < ?`
		args = append(args, f.To.Format(timeLayout))
	}
	query += ` ORDER BY logged_at ASC, id ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var loggedAt, createdAt string
		if err := rows.Scan(&e.ID, &e.Description, &e.Calories, &loggedAt, &createdAt); err != nil {
			return nil, err
		}
		e.LoggedAt, _ = time.ParseInLocation(timeLayout, loggedAt, time.Local)
		e.CreatedAt, _ = time.ParseInLocation(timeLayout, createdAt, time.Local)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) CountEntries() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (s *Store) SumCalories() (int, error) {
	var total sql.NullInt64
	if err := s.db.QueryRow(`SELECT COALESCE(SUM(calories), 0) FROM entries`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum calories: %w", err)
	}
	return int(total.Int64), nil
}

// SumCaloriesForDate returns the calorie total for one local calendar date.
func (s *Store) SumCaloriesForDate(day time.Time) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(calories), 0) FROM entries WHERE date(logged_at) = ?`,
		day.Format("2006-01-02"),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum calories for date: %w", err)
	}
	return int(total.Int64), nil
}

// DistinctEntryDates returns the deduplicated calendar dates that have at
// least one entry, ascending, each at local midnight.
func (s *Store) DistinctEntryDates() ([]time.Time, error) {
	rows, err := s.db.Query(`SELECT DISTINCT date(logged_at) FROM entries ORDER BY 1 ASC`)
	if err != nil {
		return nil, fmt.Errorf("distinct entry dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		t, err := time.ParseInLocation("2006-01-02", d, time.Local)
		if err != nil {
			return nil, fmt.Errorf("parse entry date %q: %w", d, err)
		}
		dates = append(dates, t)
	}
	return dates, rows.Err()
}

// FirstEntryDate returns the earliest entry date at local midnight, or
// nil when there are no entries.
func (s *Store) FirstEntryDate() (*time.Time, error) {
	var d sql.NullString
	err := s.db.QueryRow(`SELECT MIN(date(logged_at)) FROM entries`).Scan(&d)
	if err != nil {
		return nil, fmt.Errorf("first entry date: %w", err)
	}
	if !d.Valid {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", d.String, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse first entry date %q: %w", d.String, err)
	}
	return &t, nil
}

// ClearAll erases every entry and the profile in one transaction.
func (s *Store) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM users`); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	return tx.Commit()
}
