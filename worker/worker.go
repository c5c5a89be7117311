// Package worker implements the sink worker: the goroutine that pulls items
// off a bounded queue, batches them, and writes the batch to a sink under a
// circuit breaker and retry policy, routing batches it cannot deliver to a
// dead-letter queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mjdevaccount/market-data-store/cache"
	"github.com/mjdevaccount/market-data-store/dlq"
	"github.com/mjdevaccount/market-data-store/observe"
	"github.com/mjdevaccount/market-data-store/queue"
	"github.com/mjdevaccount/market-data-store/resilience"
	"github.com/mjdevaccount/market-data-store/sink"
)

// Config wires a SinkWorker's collaborators. Queue, Sink, Retry, Breaker and
// Middleware are required; DLQ, Cache, Keyer and Logger fall back to
// no-op/disabled behavior when left zero.
type Config[T any] struct {
	CoordID  string
	WorkerID string
	SinkKind string

	// BatchSize caps how many items a single write attempt carries.
	// Default: 500.
	BatchSize int

	// FlushInterval bounds how long the worker accumulates a partial batch
	// before writing what it has. Default: 250ms.
	FlushInterval time.Duration

	Queue   *queue.BoundedQueue[T]
	Sink    sink.Sink[T]
	Retry   *resilience.Retry
	Breaker *resilience.CircuitBreaker

	// DLQ receives batches that exhaust retries or are rejected by an open
	// circuit. Defaults to dlq.NewNoop[T]() when nil; a batch routed to the
	// Noop is discarded and no drop is recorded for it.
	DLQ dlq.DLQ[T]

	// Cache and Keyer, if both set, let the worker recognize a batch that a
	// prior attempt already wrote before a retry replayed it.
	Cache       cache.Cache
	Keyer       cache.Keyer
	CachePolicy cache.Policy

	Middleware *observe.Middleware
	Metrics    observe.Metrics
	Logger     observe.Logger
}

func (c *Config[T]) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 250 * time.Millisecond
	}
	if c.DLQ == nil {
		c.DLQ = dlq.NewNoop[T]()
	}
}

func (c *Config[T]) validate() error {
	switch {
	case c.Queue == nil:
		return errors.New("worker: Config.Queue is required")
	case c.Sink == nil:
		return errors.New("worker: Config.Sink is required")
	case c.Retry == nil:
		return errors.New("worker: Config.Retry is required")
	case c.Breaker == nil:
		return errors.New("worker: Config.Breaker is required")
	case c.Middleware == nil:
		return errors.New("worker: Config.Middleware is required")
	case c.WorkerID == "":
		return errors.New("worker: Config.WorkerID is required")
	}
	return nil
}

// SinkWorker pulls items off a queue, batches them, and writes each batch to
// a sink through a circuit breaker and retry policy.
type SinkWorker[T any] struct {
	cfg  Config[T]
	meta observe.WorkerMeta
}

// New constructs a SinkWorker from cfg, applying defaults to optional fields
// and validating that the required collaborators are present.
func New[T any](cfg Config[T]) (*SinkWorker[T], error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	meta := observe.WorkerMeta{CoordID: cfg.CoordID, WorkerID: cfg.WorkerID, SinkKind: cfg.SinkKind}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return &SinkWorker[T]{cfg: cfg, meta: meta}, nil
}

// Run pulls and writes batches until ctx is done and the queue has been
// drained, or the queue is stopped and empties out. A partial batch held
// when either condition hits is written once before Run returns.
func (w *SinkWorker[T]) Run(ctx context.Context) {
	for {
		first, ok := w.cfg.Queue.Get(ctx)
		if !ok {
			return
		}

		batch := make([]T, 0, w.cfg.BatchSize)
		batch = append(batch, first)
		deadline := time.Now().Add(w.cfg.FlushInterval)

		for len(batch) < w.cfg.BatchSize {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}
			subCtx, cancel := context.WithTimeout(ctx, remaining)
			next, ok := w.cfg.Queue.Get(subCtx)
			cancel()
			if !ok {
				break
			}
			batch = append(batch, next)
		}

		w.writeWithRetry(ctx, batch)
	}
}

// writeWithRetry implements the per-batch write algorithm: a single
// breaker admission decision, a bounded attempt loop using the retry
// policy's own backoff/classification, and routing to the dead-letter
// queue on circuit rejection or retry exhaustion.
func (w *SinkWorker[T]) writeWithRetry(ctx context.Context, batch []T) {
	if err := w.cfg.Breaker.BeforeCall(); err != nil {
		w.routeToDLQ(ctx, batch, err, "circuit_open", 0)
		return
	}

	if w.alreadyWritten(ctx, batch) {
		w.cfg.Breaker.Record(true)
		return
	}

	maxAttempts := w.cfg.Retry.Config().MaxAttempts
	var lastErr error
	attempts := 0

	for attempt := 0; attempt < maxAttempts; attempt++ {
		attempts = attempt + 1

		err := w.attemptWrite(ctx, batch)
		if err == nil {
			w.cfg.Breaker.Record(true)
			w.markWritten(ctx, batch)
			return
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if errors.Is(err, ErrSinkPanic) || !w.cfg.Retry.IsRetryable(err) || attempts >= maxAttempts {
			break
		}

		select {
		case <-time.After(w.cfg.Retry.Backoff(attempt)):
		case <-ctx.Done():
		}
	}

	w.cfg.Breaker.Record(false)
	w.routeToDLQ(ctx, batch, lastErr, w.classify(lastErr), attempts)
}

// attemptWrite performs a single write attempt through the observability
// middleware, recovering a panic from the sink and converting it to a
// terminal, non-retryable error so a worker never aborts silently.
func (w *SinkWorker[T]) attemptWrite(ctx context.Context, batch []T) error {
	fn := func(ctx context.Context, meta observe.WorkerMeta, batchSize int) error {
		return w.safeWrite(ctx, batch)
	}
	wrapped := w.cfg.Middleware.Wrap(fn, w.classify)
	return wrapped(ctx, w.meta, len(batch))
}

func (w *SinkWorker[T]) safeWrite(ctx context.Context, batch []T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSinkPanic, r)
		}
	}()
	return w.cfg.Sink.Write(ctx, batch)
}

// classify maps a write error to one of the error kinds recorded against
// write_errors_total and persisted into a dead-letter record.
func (w *SinkWorker[T]) classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSinkPanic) {
		return "panic"
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "circuit_open"
	}
	if w.cfg.Retry.IsRetryable(err) {
		return "retryable"
	}
	return "terminal"
}

func (w *SinkWorker[T]) alreadyWritten(ctx context.Context, batch []T) bool {
	if w.cfg.Cache == nil || w.cfg.Keyer == nil || !w.cfg.CachePolicy.ShouldCache() {
		return false
	}
	key, err := w.cfg.Keyer.Key(w.cfg.SinkKind, batch)
	if err != nil {
		return false
	}
	_, hit := w.cfg.Cache.Get(ctx, key)
	return hit
}

func (w *SinkWorker[T]) markWritten(ctx context.Context, batch []T) {
	if w.cfg.Cache == nil || w.cfg.Keyer == nil || !w.cfg.CachePolicy.ShouldCache() {
		return
	}
	key, err := w.cfg.Keyer.Key(w.cfg.SinkKind, batch)
	if err != nil {
		return
	}
	_ = w.cfg.Cache.Set(ctx, key, nil, w.cfg.CachePolicy.EffectiveTTL(0))
}

// routeToDLQ persists batch to the dead-letter queue. A DLQ save failure is
// logged and counted as a drop; it is never retried or propagated to the
// submitter, since stalling the write path to protect a dead-letter record
// would be worse than losing it.
func (w *SinkWorker[T]) routeToDLQ(ctx context.Context, batch []T, cause error, errorKind string, attempts int) {
	msg := "circuit open"
	if cause != nil {
		msg = cause.Error()
	}

	metadata := map[string]string{
		"worker_id":  w.cfg.WorkerID,
		"attempts":   strconv.Itoa(attempts),
		"error_kind": errorKind,
	}

	if err := w.cfg.DLQ.Save(ctx, batch, msg, errorKind, metadata); err != nil {
		if w.cfg.Logger != nil {
			w.cfg.Logger.WithWorker(w.meta).Error(ctx, "dead-letter save failed",
				observe.Field{Key: "error", Value: err.Error()},
				observe.Field{Key: "batch_size", Value: len(batch)},
			)
		}
		if w.cfg.Metrics != nil {
			w.cfg.Metrics.RecordDropped(ctx, w.meta, "dlq_failed", int64(len(batch)))
		}
	}
}
