package queue

import (
	"context"
	"time"

	"agent-gateway/internal/model"
)

// Queue is an ordered, priority-aware mailbox between the webhook router and
// the worker pool. Delivery is at-least-once: a dequeued message stays in
// flight until acknowledged or rejected, and stale leases are swept back by
// a reaper.
type Queue interface {
	// Enqueue inserts a message keyed by (priority, enqueue time).
	Enqueue(ctx context.Context, msg *model.TaskMessage) error

	// Dequeue blocks up to timeout and atomically claims the most urgent,
	// oldest message. Returns (nil, nil) when the timeout elapses.
	Dequeue(ctx context.Context, timeout time.Duration) (*model.TaskMessage, error)

	// Ack marks a previously dequeued message as durably handled.
	Ack(ctx context.Context, taskID string) error

	// Reject returns an in-flight message to the queue at its original
	// priority when requeue is true, or marks it terminally failed.
	Reject(ctx context.Context, taskID string, requeue bool) error

	// Len reports the number of not-yet-dequeued messages.
	Len(ctx context.Context) (int, error)
}
