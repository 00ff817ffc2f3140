package usecase

import (
	"context"
	"fmt"
	"time"

	"agent-gateway/internal/model"
	"agent-gateway/internal/task"
	"agent-gateway/internal/task/repository"
	pkgLog "agent-gateway/pkg/log"
)

type usecase struct {
	repo repository.TaskRepository
	l    pkgLog.Logger
	now  func() time.Time
}

func (uc *usecase) Accept(ctx context.Context, msg *model.TaskMessage) (*model.TaskRecord, error) {
	now := uc.now()
	rec := &model.TaskRecord{
		TaskID:         msg.TaskID,
		InstallationID: msg.InstallationID,
		Provider:       msg.Provider,
		InputMessage:   msg.InputMessage,
		Priority:       msg.Priority,
		Status:         model.StatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create task record: %w", err)
	}

	uc.l.Infof(ctx, "Task %s accepted (provider=%s, priority=%s)", rec.TaskID, rec.Provider, rec.Priority)
	return rec, nil
}

func (uc *usecase) Start(ctx context.Context, taskID string) (*model.TaskRecord, error) {
	return uc.transition(ctx, taskID, model.StatusRunning, func(rec *model.TaskRecord) {
		if rec.StartedAt == nil {
			now := uc.now()
			rec.StartedAt = &now
		}
	})
}

func (uc *usecase) AwaitInput(ctx context.Context, taskID string) (*model.TaskRecord, error) {
	return uc.transition(ctx, taskID, model.StatusWaitingInput, nil)
}

func (uc *usecase) Resume(ctx context.Context, taskID string) (*model.TaskRecord, error) {
	return uc.transition(ctx, taskID, model.StatusRunning, nil)
}

func (uc *usecase) Complete(ctx context.Context, taskID string, result task.Result) (*model.TaskRecord, error) {
	return uc.transition(ctx, taskID, model.StatusCompleted, func(rec *model.TaskRecord) {
		now := uc.now()
		rec.CompletedAt = &now
		rec.Output = result.Output
		rec.TokensUsed = result.TokensUsed
		rec.CostUSD = result.CostUSD
	})
}

func (uc *usecase) Fail(ctx context.Context, taskID string, result task.Result) (*model.TaskRecord, error) {
	return uc.transition(ctx, taskID, model.StatusFailed, func(rec *model.TaskRecord) {
		now := uc.now()
		rec.CompletedAt = &now
		rec.Error = result.Error
		rec.TokensUsed = result.TokensUsed
		rec.CostUSD = result.CostUSD
	})
}

func (uc *usecase) Cancel(ctx context.Context, taskID string) (*model.TaskRecord, error) {
	return uc.transition(ctx, taskID, model.StatusCancelled, nil)
}

func (uc *usecase) Get(ctx context.Context, taskID string) (*model.TaskRecord, error) {
	rec, err := uc.repo.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task record: %w", err)
	}
	if rec == nil {
		return nil, task.ErrTaskNotFound
	}
	return rec, nil
}

// transition validates and applies one lifecycle move, then persists it.
// mutate runs after the status change so timestamp/usage stamping sees the
// new state.
func (uc *usecase) transition(ctx context.Context, taskID string, to model.TaskStatus, mutate func(*model.TaskRecord)) (*model.TaskRecord, error) {
	rec, err := uc.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !task.CanTransition(rec.Status, to) {
		return nil, &task.InvalidTransitionError{From: rec.Status, To: to}
	}

	from := rec.Status
	rec.Status = to
	rec.UpdatedAt = uc.now()
	if mutate != nil {
		mutate(rec)
	}

	if err := uc.repo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("persist task transition: %w", err)
	}

	uc.l.Infof(ctx, "Task %s: %s -> %s", taskID, from, to)
	return rec, nil
}
