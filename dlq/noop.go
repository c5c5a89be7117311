package dlq

import "context"

// Noop is a DLQ that discards every record. It is used when the dead-letter
// queue is disabled (no backing file configured). Save reports success, so
// a worker that routes a batch to it records no drop; the batch is lost.
type Noop[T any] struct{}

// NewNoop returns a DLQ that discards everything saved to it.
func NewNoop[T any]() *Noop[T] { return &Noop[T]{} }

func (Noop[T]) Save(ctx context.Context, items []T, errMsg, errorKind string, metadata map[string]string) error {
	return nil
}

func (Noop[T]) Replay(ctx context.Context, maxRecords int) ([]Record[T], error) {
	return nil, nil
}

func (Noop[T]) Len(ctx context.Context) (int, error) {
	return 0, nil
}

func (Noop[T]) Close() error { return nil }

var _ DLQ[struct{}] = Noop[struct{}]{}
