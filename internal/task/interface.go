package task

import (
	"context"

	"agent-gateway/internal/model"
)

// Result carries what an execution produced for the terminal transition.
type Result struct {
	Output     string
	Error      string
	TokensUsed int
	CostUSD    float64
}

// UseCase drives the task lifecycle from creation to terminal outcome.
// Transitions out of terminal states fail with InvalidTransitionError.
type UseCase interface {
	// Accept creates the QUEUED record for an accepted task message.
	Accept(ctx context.Context, msg *model.TaskMessage) (*model.TaskRecord, error)

	// Start moves a task to RUNNING, stamping started_at on first entry.
	Start(ctx context.Context, taskID string) (*model.TaskRecord, error)

	// AwaitInput moves a RUNNING task to WAITING_INPUT.
	AwaitInput(ctx context.Context, taskID string) (*model.TaskRecord, error)

	// Resume moves a WAITING_INPUT task back to RUNNING.
	Resume(ctx context.Context, taskID string) (*model.TaskRecord, error)

	// Complete moves a task to COMPLETED with its output and usage.
	Complete(ctx context.Context, taskID string, result Result) (*model.TaskRecord, error)

	// Fail moves a task to FAILED with the error and any partial usage.
	Fail(ctx context.Context, taskID string, result Result) (*model.TaskRecord, error)

	// Cancel moves a non-terminal task to CANCELLED.
	Cancel(ctx context.Context, taskID string) (*model.TaskRecord, error)

	// Get returns the task record.
	Get(ctx context.Context, taskID string) (*model.TaskRecord, error)
}
