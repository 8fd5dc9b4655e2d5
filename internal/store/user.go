package store

import (
	"database/sql"
	"fmt"
	"time"
)

func (s *Store) UserExists() (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE id = 1`).Scan(&n); err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return n > 0, nil
}

func (s *Store) GetUser() (*Profile, error) {
	p := &Profile{}
	var createdAt string
	err := s.db.QueryRow(`SELECT name, daily_goal, created_at FROM users WHERE id = 1`).
		Scan(&p.Name, &p.DailyGoal, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	p.CreatedAt, _ = time.ParseInLocation(timeLayout, createdAt, time.Local)
	return p, nil
}

func (s *Store) SaveUser(name string, dailyGoal int) (*Profile, error) {
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO users (id, name, daily_goal, created_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, daily_goal = excluded.daily_goal`,
		name, dailyGoal, now.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return s.GetUser()
}

func (s *Store) UpdateUser(name string, dailyGoal int) (*Profile, error) {
	res, err := s.db.Exec(`UPDATE users SET name = ?, daily_goal = ? WHERE id = 1`, name, dailyGoal)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update user: %w", sql.ErrNoRows)
	}
	return s.GetUser()
}
