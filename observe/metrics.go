package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records the coordinator's named observability surface: item
// accounting, queue/worker/circuit gauges, and per-batch write outcomes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordSubmitted increments items_submitted_total for a coordinator.
	RecordSubmitted(ctx context.Context, meta WorkerMeta, n int64)

	// RecordDropped increments items_dropped_total for a coordinator, tagged
	// with the drop reason (e.g. "queue_full", "dlq_failed").
	RecordDropped(ctx context.Context, meta WorkerMeta, reason string, n int64)

	// SetQueueDepth sets the queue_depth gauge.
	SetQueueDepth(ctx context.Context, meta WorkerMeta, depth int64)

	// SetWorkersAlive sets the workers_alive gauge.
	SetWorkersAlive(ctx context.Context, meta WorkerMeta, n int64)

	// SetCircuitState sets the circuit_state gauge (closed=0, open=1, half_open=2).
	SetCircuitState(ctx context.Context, meta WorkerMeta, state int64)

	// RecordBatchWritten increments batches_written_total for a worker.
	RecordBatchWritten(ctx context.Context, meta WorkerMeta)

	// RecordWriteError increments write_errors_total for a worker, tagged
	// with the classified error kind.
	RecordWriteError(ctx context.Context, meta WorkerMeta, errorKind string)

	// RecordWriteLatency records write_latency_seconds for a worker.
	RecordWriteLatency(ctx context.Context, meta WorkerMeta, d time.Duration)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter metric.Meter

	itemsSubmitted metric.Int64Counter
	itemsDropped   metric.Int64Counter
	queueDepth     metric.Int64Gauge
	workersAlive   metric.Int64Gauge
	circuitState   metric.Int64Gauge
	batchesWritten metric.Int64Counter
	writeErrors    metric.Int64Counter
	writeLatency   metric.Float64Histogram
}

// NewMetrics creates a Metrics instance bound to meter, exporting items
// submitted and dropped, queue depth, workers alive, circuit state, batches
// written, write errors, and write latency. Most callers get a Metrics
// through MiddlewareFromObserver or MetricsFromObserver; NewMetrics is
// exposed directly for a coordinator-level sampler that records
// queue/worker/circuit gauges outside of any single batch write.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

// MetricsFromObserver creates a Metrics bound to obs's meter.
func MetricsFromObserver(obs Observer) (Metrics, error) {
	return newMetrics(obs.Meter())
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	itemsSubmitted, err := meter.Int64Counter(
		"items_submitted_total",
		metric.WithDescription("Total number of items accepted by Submit/SubmitMany"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	itemsDropped, err := meter.Int64Counter(
		"items_dropped_total",
		metric.WithDescription("Total number of items dropped before being written"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Gauge(
		"queue_depth",
		metric.WithDescription("Current number of items resident in the bounded queue"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	workersAlive, err := meter.Int64Gauge(
		"workers_alive",
		metric.WithDescription("Current number of running sink workers"),
		metric.WithUnit("{worker}"),
	)
	if err != nil {
		return nil, err
	}

	circuitState, err := meter.Int64Gauge(
		"circuit_state",
		metric.WithDescription("Circuit breaker state: closed=0, open=1, half_open=2"),
	)
	if err != nil {
		return nil, err
	}

	batchesWritten, err := meter.Int64Counter(
		"batches_written_total",
		metric.WithDescription("Total number of batches successfully written to the sink"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, err
	}

	writeErrors, err := meter.Int64Counter(
		"write_errors_total",
		metric.WithDescription("Total number of failed batch writes, by error kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	writeLatency, err := meter.Float64Histogram(
		"write_latency_seconds",
		metric.WithDescription("Sink write latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:          meter,
		itemsSubmitted: itemsSubmitted,
		itemsDropped:   itemsDropped,
		queueDepth:     queueDepth,
		workersAlive:   workersAlive,
		circuitState:   circuitState,
		batchesWritten: batchesWritten,
		writeErrors:    writeErrors,
		writeLatency:   writeLatency,
	}, nil
}

func coordAttrs(meta WorkerMeta) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("coord.id", meta.CoordID)}
}

func workerAttrs(meta WorkerMeta) []attribute.KeyValue {
	attrs := coordAttrs(meta)
	if meta.WorkerID != "" {
		attrs = append(attrs, attribute.String("worker.id", meta.WorkerID))
	}
	return attrs
}

func (m *metricsImpl) RecordSubmitted(ctx context.Context, meta WorkerMeta, n int64) {
	m.itemsSubmitted.Add(ctx, n, metric.WithAttributes(coordAttrs(meta)...))
}

func (m *metricsImpl) RecordDropped(ctx context.Context, meta WorkerMeta, reason string, n int64) {
	attrs := append(coordAttrs(meta), attribute.String("reason", reason))
	m.itemsDropped.Add(ctx, n, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) SetQueueDepth(ctx context.Context, meta WorkerMeta, depth int64) {
	m.queueDepth.Record(ctx, depth, metric.WithAttributes(coordAttrs(meta)...))
}

func (m *metricsImpl) SetWorkersAlive(ctx context.Context, meta WorkerMeta, n int64) {
	m.workersAlive.Record(ctx, n, metric.WithAttributes(coordAttrs(meta)...))
}

func (m *metricsImpl) SetCircuitState(ctx context.Context, meta WorkerMeta, state int64) {
	m.circuitState.Record(ctx, state, metric.WithAttributes(coordAttrs(meta)...))
}

func (m *metricsImpl) RecordBatchWritten(ctx context.Context, meta WorkerMeta) {
	m.batchesWritten.Add(ctx, 1, metric.WithAttributes(workerAttrs(meta)...))
}

func (m *metricsImpl) RecordWriteError(ctx context.Context, meta WorkerMeta, errorKind string) {
	attrs := append(workerAttrs(meta), attribute.String("error_kind", errorKind))
	m.writeErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metricsImpl) RecordWriteLatency(ctx context.Context, meta WorkerMeta, d time.Duration) {
	m.writeLatency.Record(ctx, d.Seconds(), metric.WithAttributes(workerAttrs(meta)...))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordSubmitted(ctx context.Context, meta WorkerMeta, n int64)               {}
func (m *noopMetrics) RecordDropped(ctx context.Context, meta WorkerMeta, reason string, n int64)  {}
func (m *noopMetrics) SetQueueDepth(ctx context.Context, meta WorkerMeta, depth int64)              {}
func (m *noopMetrics) SetWorkersAlive(ctx context.Context, meta WorkerMeta, n int64)                {}
func (m *noopMetrics) SetCircuitState(ctx context.Context, meta WorkerMeta, state int64)            {}
func (m *noopMetrics) RecordBatchWritten(ctx context.Context, meta WorkerMeta)                      {}
func (m *noopMetrics) RecordWriteError(ctx context.Context, meta WorkerMeta, errorKind string)       {}
func (m *noopMetrics) RecordWriteLatency(ctx context.Context, meta WorkerMeta, d time.Duration)      {}
