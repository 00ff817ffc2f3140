package task

import (
	"errors"
	"fmt"

	"agent-gateway/internal/model"
)

// ErrTaskNotFound means no record exists for the task id.
var ErrTaskNotFound = errors.New("task not found")

// InvalidTransitionError reports an attempted illegal lifecycle transition.
// It always indicates a programming or ordering bug, never a business
// condition, so it is surfaced rather than swallowed.
type InvalidTransitionError struct {
	From model.TaskStatus
	To   model.TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid task transition %s -> %s", e.From, e.To)
}
