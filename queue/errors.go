package queue

import "errors"

// Sentinel errors for queue operations.
var (
	// ErrQueueFull is returned by Put under the error overflow strategy when
	// the queue is at capacity.
	ErrQueueFull = errors.New("queue: full")

	// ErrShuttingDown is returned by Put once Stop has been called.
	ErrShuttingDown = errors.New("queue: shutting down")
)
