package store

import "time"

type Entry struct {
	ID          int64
	Description string
	Calories    int
	LoggedAt    time.Time
	CreatedAt   time.Time
}

// Profile is the single user row. Its absence signals first launch.
type Profile struct {
	Name      string
	DailyGoal int
	CreatedAt time.Time
}

// EntryFilter is used to filter entries in queries.
type EntryFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
