package queue

import "errors"

// Domain-specific errors for the queue package.
var (
	// ErrUnavailable signals a transport-layer failure reaching the queue
	// backend. Callers retry with bounded exponential backoff.
	ErrUnavailable = errors.New("queue backend unavailable")

	// ErrUnknownTask is returned by Ack/Reject for a task id that is not in
	// flight.
	ErrUnknownTask = errors.New("task not in flight")

	// ErrClosed is returned once the queue has been shut down.
	ErrClosed = errors.New("queue closed")
)
