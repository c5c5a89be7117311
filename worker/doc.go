// Package worker implements SinkWorker, the batching write loop that
// connects a bounded queue to a sink through a circuit breaker and retry
// policy.
//
// # Core Components
//
//   - [SinkWorker]: pulls, batches, and writes; owns one breaker/retry pair
//   - [Config]: wires the collaborators a worker needs; see field docs for
//     required vs. optional
//
// # Batching
//
// Run pulls one item (blocking on the queue), then accumulates further
// items up to BatchSize within a FlushInterval window, whichever comes
// first. A partial batch is written rather than held indefinitely.
//
// # Write Path
//
// Each batch gets a single breaker admission decision (BeforeCall), an
// attempt loop driven by the retry policy's own backoff and
// classification, and a single Record call reporting the batch's overall
// outcome. A sink panic is recovered at the attempt boundary and treated
// as a terminal, non-retryable error. A batch that exhausts its attempts,
// or arrives while the breaker is open, is handed to the dead-letter
// queue; a DLQ save failure is logged and counted, never retried.
//
// # Quick Start
//
//	w, err := worker.New(worker.Config[Quote]{
//	    WorkerID: "w-1",
//	    Queue:    q,
//	    Sink:     s,
//	    Retry:    retry,
//	    Breaker:  breaker,
//	    Middleware: mw,
//	})
//	if err != nil { ... }
//	go w.Run(ctx)
//
// # Integration
//
//   - queue: the blocking pull source
//   - sink: the write destination
//   - resilience: BeforeCall/Record and Backoff/IsRetryable drive the
//     per-batch admission and attempt loop
//   - observe: Middleware wraps each attempt with tracing, metrics, logging
//   - cache: recognizes a batch a prior attempt already wrote
//   - dlq: the terminal destination for undeliverable batches
//   - coordinator: constructs and supervises a pool of SinkWorkers
package worker
