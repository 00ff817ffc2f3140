package task

import "agent-gateway/internal/model"

// validTransitions is the full lifecycle state machine. Terminal states have
// no outgoing edges.
var validTransitions = map[model.TaskStatus][]model.TaskStatus{
	model.StatusQueued:       {model.StatusRunning, model.StatusCancelled},
	model.StatusRunning:      {model.StatusWaitingInput, model.StatusCompleted, model.StatusFailed, model.StatusCancelled},
	model.StatusWaitingInput: {model.StatusRunning, model.StatusCancelled},
	model.StatusCompleted:    {},
	model.StatusFailed:       {},
	model.StatusCancelled:    {},
}

// CanTransition reports whether from → to is a legal lifecycle move.
func CanTransition(from, to model.TaskStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
