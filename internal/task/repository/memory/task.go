package memory

import (
	"context"
	"sync"

	"agent-gateway/internal/model"
)

// Repository is the in-memory TaskRepository, used by tests and
// single-process development setups.
type Repository struct {
	mu    sync.RWMutex
	tasks map[string]*model.TaskRecord
}

func New() *Repository {
	return &Repository{
		tasks: make(map[string]*model.TaskRecord),
	}
}

func (r *Repository) Create(ctx context.Context, rec *model.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.tasks[rec.TaskID] = &cp
	return nil
}

func (r *Repository) Get(ctx context.Context, taskID string) (*model.TaskRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.tasks[taskID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *Repository) Update(ctx context.Context, rec *model.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.tasks[rec.TaskID] = &cp
	return nil
}
