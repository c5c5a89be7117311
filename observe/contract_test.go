package observe

import (
	"context"
	"testing"
	"time"
)

func TestObserverContract_Noops(t *testing.T) {
	cfg := Config{
		ServiceName: "observe-test",
		Tracing: TracingConfig{
			Enabled:  false,
			Exporter: "none",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Exporter: "none",
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
		},
	}

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	if obs.Tracer() == nil {
		t.Fatalf("expected non-nil tracer")
	}
	if obs.Meter() == nil {
		t.Fatalf("expected non-nil meter")
	}
	if obs.Logger() == nil {
		t.Fatalf("expected non-nil logger")
	}
}

func TestLoggerContract_WithWorker(t *testing.T) {
	logger := &noopLogger{}
	if logger.WithWorker(WorkerMeta{CoordID: "noop"}) == nil {
		t.Fatalf("WithWorker should return non-nil logger")
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := &noopMetrics{}
	meta := WorkerMeta{CoordID: "noop"}
	metrics.RecordSubmitted(context.Background(), meta, 1)
	metrics.RecordDropped(context.Background(), meta, "queue_full", 1)
	metrics.SetQueueDepth(context.Background(), meta, 0)
	metrics.SetWorkersAlive(context.Background(), meta, 0)
	metrics.SetCircuitState(context.Background(), meta, 0)
	metrics.RecordBatchWritten(context.Background(), meta)
	metrics.RecordWriteError(context.Background(), meta, "timeout")
	metrics.RecordWriteLatency(context.Background(), meta, 10*time.Millisecond)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	ctx := context.Background()
	_, span := tracer.StartSpan(ctx, WorkerMeta{CoordID: "noop"})
	tracer.EndSpan(span, nil)
}
