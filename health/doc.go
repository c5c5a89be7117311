// Package health provides health checking primitives for the write
// coordinator.
//
// It implements a generic health checking framework for monitoring the
// coordinator's internal components — bounded queues, circuit breakers, and
// the dead-letter queue — and aggregating their results into one composite
// status. The HTTP
// surface that would serve this over /healthz/readyz belongs to an external
// control plane and is not part of this package.
//
// # Core Components
//
//   - [Checker]: Interface for health checks (Name() + Check())
//   - [CheckerFunc]: Adapter for function-based checkers
//   - [Result]: Health check outcome with status, message, details, duration
//   - [Aggregator]: Combines multiple checkers into composite health
//   - [MemoryChecker]: Built-in checker for memory usage thresholds
//   - [QueueChecker]: Reports degraded/unhealthy as a bounded queue fills
//   - [CircuitChecker]: Reports degraded/unhealthy while a circuit breaker
//     is half-open or open
//   - [DLQChecker]: Reports degraded once a dead-letter queue passes a
//     configured record-count threshold
//
// # Quick Start
//
//	agg := health.NewAggregator()
//	agg.Register("queue", health.NewQueueChecker("queue", boundedQueue, 0.8))
//	agg.Register("circuit", health.NewCircuitChecker("circuit", circuitBreaker))
//	agg.Register("dlq", health.NewDLQChecker("dlq", deadLetterQueue, 1000))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// The coordinator returns these same checkers from HealthCheckers() and
// registers them on the Aggregator it returns from HealthAggregator(), so
// an external HTTP control plane can reuse them without depending on the
// coordinator's internals. Its CoordinatorHealth snapshot from Health()
// does not go through them; it reads the queue, breaker and worker counter
// directly.
//
// # Aggregation Behavior
//
// The [Aggregator] computes overall status using worst-case logic:
//
//   - If ANY check is Unhealthy → overall Unhealthy
//   - If ANY check is Degraded (and none Unhealthy) → overall Degraded
//   - If ALL checks are Healthy → overall Healthy
//
// Checks can run in parallel (default) or sequentially via [AggregatorConfig].
//
// # Thread Safety
//
// All exported types are safe for concurrent use:
//
//   - [Aggregator]: sync.RWMutex protects registration and check execution
//   - [MemoryChecker], [QueueChecker], [CircuitChecker], [DLQChecker]: stateless, concurrent-safe
//   - [CheckerFunc]: Delegates to user function, ensure your function is safe
//   - [Result]: Immutable after creation
//
// # Error Handling
//
// Sentinel errors (use errors.Is for checking):
//
//   - [ErrCheckFailed]: Generic health check failure
//   - [ErrCheckTimeout]: Check exceeded timeout
//   - [ErrCheckerNotFound]: Named checker not registered
//   - [ErrNoCheckers]: No checkers registered in aggregator
//   - [ErrQueueSaturated]: Queue at capacity
//   - [ErrCircuitOpen]: Circuit breaker open
//
// # Integration
//
//   - resilience: CircuitChecker reads CircuitBreaker.State() directly
//   - queue: QueueChecker reads BoundedQueue's Len()/Cap()
//   - dlq: DLQChecker reads DLQ's record count
//   - coordinator: exposes all three through HealthCheckers and HealthAggregator
package health
