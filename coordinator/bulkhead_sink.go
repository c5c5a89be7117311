package coordinator

import (
	"context"

	"github.com/mjdevaccount/market-data-store/resilience"
	"github.com/mjdevaccount/market-data-store/sink"
)

// bulkheadSink wraps a Sink so every Write call is admitted through a
// shared Bulkhead before running, bounding the number of concurrent
// sink.Write calls across all workers independent of worker count, so an
// operator can cap that concurrency explicitly when the sink has its own
// connection-pool limits. Open and Close are not forwarded here; the
// coordinator calls those on the unwrapped sink directly, once, outside any
// worker's write path.
type bulkheadSink[T any] struct {
	inner    sink.Sink[T]
	bulkhead *resilience.Bulkhead
}

func withBulkhead[T any](inner sink.Sink[T], b *resilience.Bulkhead) sink.Sink[T] {
	if b == nil {
		return inner
	}
	return &bulkheadSink[T]{inner: inner, bulkhead: b}
}

// Write acquires a bulkhead slot, runs the wrapped sink's Write, and always
// releases the slot, even if inner.Write panics (the panic itself is
// recovered one layer up, at the worker boundary).
func (s *bulkheadSink[T]) Write(ctx context.Context, batch []T) error {
	if err := s.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer s.bulkhead.Release()
	return s.inner.Write(ctx, batch)
}
