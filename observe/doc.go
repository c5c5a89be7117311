// Package observe provides OpenTelemetry-based observability for the write
// coordinator.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. Consumers wire the Observer into the coordinator,
// its sink workers, and the health/feedback surfaces built on top of them.
//
// # Overview
//
// observe provides three observability pillars:
//   - Tracing: OpenTelemetry spans with coordinator/worker/sink attributes
//   - Metrics: Queue, circuit, and batch-write counters/gauges/histograms
//   - Logging: Structured JSON logging with automatic field redaction
//
// # Core Components
//
//   - [Observer]: Main facade providing Tracer, Meter, and Logger access
//   - [Tracer]: Span creation with [WorkerMeta] as span attributes
//   - [Metrics]: Records queue depth, circuit state, and batch-write counters/latency
//   - [Logger]: Structured JSON logging with sensitive field redaction
//   - [Middleware]: Wraps a [WriteFunc] with complete observability
//
// # Quick Start
//
//	cfg := observe.Config{
//	    ServiceName: "my-service",
//	    Version:     "1.0.0",
//	    Tracing:     observe.TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 1.0},
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	}
//
//	obs, err := observe.NewObserver(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer obs.Shutdown(ctx)
//
//	// Create middleware and wrap a sink's batch write
//	mw, _ := observe.MiddlewareFromObserver(obs)
//	wrappedWrite := mw.Wrap(originalWriteFunc, errorKindOf)
//
//	// Write - automatically traced, metered, and logged
//	err = wrappedWrite(ctx, workerMeta, batchSize)
//
// # Telemetry Details
//
// Tracing creates spans with deterministic names:
//   - With sink kind: "coordinator.write.<sinkKind>" (e.g., "coordinator.write.postgres")
//   - Without sink kind: "coordinator.write"
//
// Span attributes include:
//   - coord.id: Write coordinator instance identifier (required)
//   - worker.id: Sink worker identifier (if set)
//   - sink.kind: Sink implementation kind (if set)
//   - write.error: Boolean indicating write failure
//
// Metrics recorded (see [Metrics]):
//   - items_submitted_total, items_dropped_total (counters, coord.id [+ reason])
//   - queue_depth, workers_alive, circuit_state (gauges, coord.id)
//   - batches_written_total, write_errors_total (counters, coord.id, worker.id [+ error_kind])
//   - write_latency_seconds (histogram, coord.id, worker.id)
//
// # Sensitive Field Redaction
//
// The logger automatically redacts these fields to prevent credential leakage:
//   - input, inputs
//   - password, secret, token
//   - api_key, apiKey, credential
//
// See [RedactedFields] for the complete list.
//
// # Exporter Configuration
//
// Tracing exporters:
//   - "otlp": OTLP gRPC (requires OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT)
//   - "jaeger": Jaeger via OTLP (requires OTEL_EXPORTER_JAEGER_ENDPOINT)
//   - "stdout": Console output for development
//   - "none" or "": Disabled (no-op)
//
// Metrics exporters:
//   - "otlp": OTLP gRPC (requires OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT)
//   - "prometheus": Prometheus scrape endpoint
//   - "stdout": Console output for development
//   - "none" or "": Disabled (no-op)
//
// # Thread Safety
//
// All exported types are safe for concurrent use after construction:
//   - [Observer]: Tracer(), Meter(), Logger() are safe; Shutdown() is idempotent
//   - [Tracer]: StartSpan() and EndSpan() are safe for concurrent use
//   - [Metrics]: all recording methods are safe for concurrent use
//   - [Logger]: All logging methods are mutex-protected
//   - [Middleware]: Wrap() returns a thread-safe [WriteFunc]
//
// # Error Handling
//
// Configuration errors (use errors.Is for checking):
//   - [ErrMissingServiceName]: Config.ServiceName is empty
//   - [ErrInvalidSamplePct]: Tracing.SamplePct not in [0.0, 1.0]
//   - [ErrInvalidTracingExporter]: Unknown tracing exporter name
//   - [ErrInvalidMetricsExporter]: Unknown metrics exporter name
//   - [ErrInvalidLogLevel]: Unknown log level
//
// Exporter errors:
//   - [ErrEndpointNotConfigured]: Required endpoint env var not set
//
// Runtime errors:
//   - [ErrNilObserver]: Nil Observer passed to function
//   - [ErrMissingCoordID]: WorkerMeta.CoordID is empty
//
// Example error handling:
//
//	obs, err := observe.NewObserver(ctx, cfg)
//	if errors.Is(err, observe.ErrMissingServiceName) {
//	    // Handle missing service name
//	}
//	if errors.Is(err, observe.ErrEndpointNotConfigured) {
//	    // Handle missing OTLP endpoint
//	}
//
// # Integration
//
//   - worker: SinkWorker wraps its batch write with Middleware
//   - coordinator: samples queue depth, worker count, and circuit state into Metrics
//   - health: does not use observe; its checkers report queue, circuit and DLQ status on their own
package observe
