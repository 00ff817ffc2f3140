package task

import (
	"testing"

	"agent-gateway/internal/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from model.TaskStatus
		to   model.TaskStatus
		want bool
	}{
		{model.StatusQueued, model.StatusRunning, true},
		{model.StatusQueued, model.StatusCancelled, true},
		{model.StatusQueued, model.StatusCompleted, false},
		{model.StatusQueued, model.StatusWaitingInput, false},

		{model.StatusRunning, model.StatusWaitingInput, true},
		{model.StatusRunning, model.StatusCompleted, true},
		{model.StatusRunning, model.StatusFailed, true},
		{model.StatusRunning, model.StatusCancelled, true},
		{model.StatusRunning, model.StatusQueued, false},

		{model.StatusWaitingInput, model.StatusRunning, true},
		{model.StatusWaitingInput, model.StatusCancelled, true},
		{model.StatusWaitingInput, model.StatusCompleted, false},

		{model.StatusCompleted, model.StatusRunning, false},
		{model.StatusCompleted, model.StatusCancelled, false},
		{model.StatusFailed, model.StatusRunning, false},
		{model.StatusCancelled, model.StatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []model.TaskStatus{
		model.StatusQueued, model.StatusRunning, model.StatusWaitingInput,
		model.StatusCompleted, model.StatusFailed, model.StatusCancelled,
	}
	for _, from := range all {
		if !from.Terminal() {
			continue
		}
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal state %s allows transition to %s", from, to)
			}
		}
	}
}

func TestInvalidTransitionErrorMessage(t *testing.T) {
	err := &InvalidTransitionError{From: model.StatusCompleted, To: model.StatusRunning}
	want := "invalid task transition COMPLETED -> RUNNING"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}
