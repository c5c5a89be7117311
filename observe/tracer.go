package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// WorkerMeta identifies the coordinator, worker, and sink a telemetry
// observation belongs to. CoordID is always set; WorkerID and SinkKind are
// empty for coordinator-level observations that aren't scoped to a single
// worker (queue depth, circuit state, items submitted/dropped).
type WorkerMeta struct {
	CoordID  string // write coordinator instance identifier (required)
	WorkerID string // sink worker identifier within the coordinator (optional)
	SinkKind string // sink implementation kind, e.g. "postgres", "s3" (optional)
}

// SpanName returns the deterministic span name for a batch write.
// Format: coordinator.write.<sinkKind>, or coordinator.write if SinkKind is empty.
func (m WorkerMeta) SpanName() string {
	if m.SinkKind != "" {
		return "coordinator.write." + m.SinkKind
	}
	return "coordinator.write"
}

// Validate checks that required fields are set.
func (m WorkerMeta) Validate() error {
	if m.CoordID == "" {
		return ErrMissingCoordID
	}
	return nil
}

// Tracer wraps OpenTelemetry tracing with batch-write span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan derives the span's context from ctx; it reports no error.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a sink write attempt.
	StartSpan(ctx context.Context, meta WorkerMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with worker metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta WorkerMeta) (context.Context, trace.Span) {
	spanName := meta.SpanName()

	attrs := []attribute.KeyValue{
		attribute.String("coord.id", meta.CoordID),
		attribute.Bool("write.error", false), // updated in EndSpan if error
	}

	if meta.WorkerID != "" {
		attrs = append(attrs, attribute.String("worker.id", meta.WorkerID))
	}
	if meta.SinkKind != "" {
		attrs = append(attrs, attribute.String("sink.kind", meta.SinkKind))
	}

	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("write.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta WorkerMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
