package model

import "time"

// TaskPriority orders queue delivery. Lower value means more urgent, so the
// queue always serves the lowest (priority, enqueued_at) pair first.
type TaskPriority int

const (
	PriorityCritical TaskPriority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

// String returns the wire name for a priority.
func (p TaskPriority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityNormal:
		return "NORMAL"
	case PriorityLow:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusQueued       TaskStatus = "QUEUED"
	StatusRunning      TaskStatus = "RUNNING"
	StatusWaitingInput TaskStatus = "WAITING_INPUT"
	StatusCompleted    TaskStatus = "COMPLETED"
	StatusFailed       TaskStatus = "FAILED"
	StatusCancelled    TaskStatus = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// TaskMessage is the immutable unit of work handed to the queue.
type TaskMessage struct {
	TaskID         string            `json:"task_id"`
	InstallationID string            `json:"installation_id"`
	Provider       string            `json:"provider"`
	InputMessage   string            `json:"input_message"`
	Priority       TaskPriority      `json:"priority"`
	SourceMetadata map[string]string `json:"source_metadata"`
	CreatedAt      time.Time         `json:"created_at"`
}

// TaskRecord is the persisted lifecycle view of a task.
type TaskRecord struct {
	TaskID         string       `json:"task_id"`
	InstallationID string       `json:"installation_id"`
	Provider       string       `json:"provider"`
	InputMessage   string       `json:"input_message"`
	Priority       TaskPriority `json:"priority"`
	Status         TaskStatus   `json:"status"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	Output         string       `json:"output,omitempty"`
	Error          string       `json:"error,omitempty"`
	TokensUsed     int          `json:"tokens_used"`
	CostUSD        float64      `json:"cost_usd"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
