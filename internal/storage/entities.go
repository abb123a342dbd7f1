package storage

import "time"

type Task struct {
	ID              string
	Text            string
	DueAt           time.Time
	Priority        string
	Archived        bool
	Completed       bool
	AlertFiveMinute bool
	AlertOneMinute  bool
	AlertDue        bool
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

type TaskListFilter struct {
	Archived  *bool
	Completed *bool
	Limit     int
	Offset    int
}
