package observe

import (
	"context"
	"time"
)

// WriteFunc is the signature for a sink batch-write attempt. This is the
// standard function signature that Middleware wraps.
type WriteFunc func(ctx context.Context, meta WorkerMeta, batchSize int) error

// Middleware wraps a sink write with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe WriteFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps a WriteFunc with tracing, metrics, and logging. Every attempt
// records write_latency_seconds; a success also records
// batches_written_total, and a failure instead records write_errors_total
// tagged with the error's kind, as classified by errorKind.
func (m *Middleware) Wrap(fn WriteFunc, errorKind func(error) string) WriteFunc {
	return func(ctx context.Context, meta WorkerMeta, batchSize int) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		err := fn(ctx, meta, batchSize)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordWriteLatency(ctx, meta, duration)

		workerLogger := m.logger.WithWorker(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
			{Key: "batch_size", Value: batchSize},
		}

		if err != nil {
			kind := "unknown"
			if errorKind != nil {
				kind = errorKind(err)
			}
			m.metrics.RecordWriteError(ctx, meta, kind)
			fields = append(fields, Field{Key: "error", Value: err.Error()}, Field{Key: "error_kind", Value: kind})
			workerLogger.Error(ctx, "batch write failed", fields...)
			return err
		}

		m.metrics.RecordBatchWritten(ctx, meta)
		workerLogger.Info(ctx, "batch write completed", fields...)
		return nil
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
