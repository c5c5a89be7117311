// Package queue provides a capacity-limited FIFO with watermark-driven
// backpressure feedback, generic over the item type it carries.
//
// # Core Components
//
//   - [BoundedQueue]: thread-safe bounded FIFO with Put/Get/Len/Cap/Stop
//   - [OverflowStrategy]: Block (default), DropOldest, or Error behavior when full
//   - [Config]: capacity, watermarks, overflow strategy, drop callback, feedback bus
//
// # Watermark Feedback
//
// The queue emits a [feedback.Event] on state transitions only, never on
// every operation. Two latched flags (hard-fired, soft-fired) ensure at most
// one event per boundary crossing:
//
//	size >= high watermark, not yet hard-fired   -> emit Hard,  latch hard+soft
//	low < size < high, not yet soft/hard-fired    -> emit Soft,  latch soft
//	size <= low watermark, was hard or soft-fired -> emit Ok ("queue_recovered"), clear latches
//
// Entering Hard implicitly covers Soft: no separate Soft event fires on the
// same crossing.
//
// # Quick Start
//
//	q := queue.New(queue.Config[Record]{
//	    Capacity: 10_000,
//	    Overflow: queue.Block,
//	    CoordID:  "primary",
//	    Bus:      feedback.Default(),
//	})
//	defer q.Stop()
//
//	if err := q.Put(ctx, record); err != nil {
//	    // ErrQueueFull (Error strategy) or ErrShuttingDown
//	}
//	item, ok := q.Get(ctx)
//
// # Concurrency
//
// Put and Get block cooperatively: Put suspends under Block when full, Get
// suspends when empty. Stop wakes every blocked caller. The size counter and
// watermark latches share one mutex so emission decisions are made
// atomically with the size change that triggers them; the event itself is
// published only after the mutex is released, so a slow feedback subscriber
// never stalls producers or consumers.
//
// # Integration
//
//   - feedback: watermark transitions are delivered through a Bus
//   - worker: a SinkWorker's batching loop calls Get in a tight pull+timeout loop
//   - coordinator: owns the queue's lifecycle and exposes Len/Cap via health.QueueChecker
package queue
