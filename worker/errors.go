package worker

import "errors"

// ErrSinkPanic wraps a recovered panic from a Sink's Write call. The worker
// boundary converts it to a terminal error; it is never retried.
var ErrSinkPanic = errors.New("worker: sink panicked")
