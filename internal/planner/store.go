package planner

import (
	"context"
	"errors"
)

var ErrStoreNotFound = errors.New("task not found in store")

// Store persists task snapshots so operators can audit the queue after a
// restart. The planner treats persistence as best effort.
type Store interface {
	SaveTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, taskID string) (Task, error)
	ListTasks(ctx context.Context, limit int) ([]Task, error)
	Close() error
}
