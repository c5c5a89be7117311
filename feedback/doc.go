// Package feedback provides an in-process publish/subscribe bus for
// backpressure Events emitted by a bounded queue.
//
// # Core Components
//
//   - [Event]: immutable backpressure signal (coord_id, queue_size, capacity,
//     level, source, ts, reason)
//   - [Level]: totally-ordered backpressure level (Ok < Soft < Hard)
//   - [Bus]: registration-ordered pub/sub dispatcher with per-subscriber
//     error isolation
//
// # Quick Start
//
//	bus := feedback.NewBus(nil)
//	handle := bus.Subscribe(func(ctx context.Context, e feedback.Event) {
//	    log.Printf("backpressure: %s (%d/%d)", e.Level, e.QueueSize, e.Capacity)
//	})
//	defer bus.Unsubscribe(handle)
//
//	bus.Publish(ctx, feedback.Event{
//	    CoordID: "primary", QueueSize: 85, Capacity: 100,
//	    Level: feedback.Hard, Source: feedback.Source,
//	})
//
// # Error Isolation
//
// Subscribers run synchronously on the publisher's goroutine, in
// registration order. A subscriber that panics is recovered and reported to
// the Bus's ErrorHandler (if set); delivery continues to the remaining
// subscribers. Publish never blocks longer than the sum of its subscribers'
// run times and never returns an error.
//
// # Process-Wide Singleton
//
// [Default] returns a lazily-initialized, thread-safe process-wide Bus for
// callers that prefer the simpler global-instance form. A coordinator may
// instead construct its own Bus and inject it explicitly; both satisfy the
// same contract.
//
// # Integration
//
//   - queue: a BoundedQueue publishes watermark transitions to a Bus
//   - coordinator: publishes a final ok/"coordinator_stopped" event on shutdown
//   - broadcaster: an HTTPBroadcaster subscribes to forward events over HTTP
package feedback
