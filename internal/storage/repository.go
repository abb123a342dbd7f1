package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("storage: not found")

// Repository persists task snapshots. Scheduled reminders are never stored.
type Repository interface {
	SaveTask(ctx context.Context, in Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	DeleteTask(ctx context.Context, id string) error
	DeleteAllTasks(ctx context.Context) (int, error)
	ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error)
}
