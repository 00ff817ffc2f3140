package repository

import (
	"context"

	"agent-gateway/internal/model"
)

// TaskRepository persists task lifecycle records.
type TaskRepository interface {
	// Create inserts a new task record.
	Create(ctx context.Context, rec *model.TaskRecord) error

	// Get returns a task record, or nil when absent.
	Get(ctx context.Context, taskID string) (*model.TaskRecord, error)

	// Update persists changed fields of an existing record.
	Update(ctx context.Context, rec *model.TaskRecord) error
}
