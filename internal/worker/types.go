package worker

import (
	"context"
	"time"

	"agent-gateway/internal/model"
)

// ExecutionResult is what the execution engine reports back.
type ExecutionResult struct {
	Output     string
	TokensUsed int
	CostUSD    float64
}

// Executor runs the actual work for a task. It is an external collaborator;
// the pool only records the outcome it reports.
type Executor interface {
	Execute(ctx context.Context, msg *model.TaskMessage) (*ExecutionResult, error)
}

// ResultPoster delivers a finished task's output back to the third party.
// It returns the external id of whatever it posted so the loop guard can
// suppress the echo.
type ResultPoster interface {
	Post(ctx context.Context, rec *model.TaskRecord) (externalID string, err error)
}

// Config tunes the pool.
type Config struct {
	PoolSize       int
	DequeueTimeout time.Duration
}
