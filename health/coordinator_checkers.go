package health

import (
	"context"
	"fmt"

	"github.com/mjdevaccount/market-data-store/resilience"
)

// QueueDepthProvider reports the current depth and capacity of a bounded
// queue. Implemented by queue.BoundedQueue.
type QueueDepthProvider interface {
	Len() int
	Cap() int
}

// QueueChecker reports degraded when a queue crosses its high watermark and
// unhealthy when it is at capacity.
type QueueChecker struct {
	name          string
	queue         QueueDepthProvider
	highWatermark float64
}

// NewQueueChecker creates a Checker over q. highWatermark is the utilization
// fraction (0, 1] at which the check reports degraded instead of healthy.
func NewQueueChecker(name string, q QueueDepthProvider, highWatermark float64) *QueueChecker {
	if highWatermark <= 0 || highWatermark > 1 {
		highWatermark = 0.8
	}
	return &QueueChecker{name: name, queue: q, highWatermark: highWatermark}
}

// Name returns the checker's registration name.
func (c *QueueChecker) Name() string {
	return c.name
}

// Check reports the queue's current utilization.
func (c *QueueChecker) Check(ctx context.Context) Result {
	depth, capacity := c.queue.Len(), c.queue.Cap()

	var utilization float64
	if capacity > 0 {
		utilization = float64(depth) / float64(capacity)
	}

	details := map[string]any{
		"queue_size":  depth,
		"capacity":    capacity,
		"utilization": utilization,
	}

	switch {
	case capacity > 0 && depth >= capacity:
		return Unhealthy("queue at capacity", ErrQueueSaturated).WithDetails(details)
	case utilization >= c.highWatermark:
		return Degraded(fmt.Sprintf("queue utilization %.0f%% above watermark", utilization*100)).WithDetails(details)
	default:
		return Healthy("queue within capacity").WithDetails(details)
	}
}

// CircuitStateProvider reports a circuit breaker's current state.
// Implemented by *resilience.CircuitBreaker.
type CircuitStateProvider interface {
	State() resilience.State
}

// CircuitChecker reports degraded while a circuit is half-open (recovering)
// and unhealthy while it is open (rejecting all calls).
type CircuitChecker struct {
	name    string
	breaker CircuitStateProvider
}

// NewCircuitChecker creates a Checker over a circuit breaker's state.
func NewCircuitChecker(name string, breaker CircuitStateProvider) *CircuitChecker {
	return &CircuitChecker{name: name, breaker: breaker}
}

// Name returns the checker's registration name.
func (c *CircuitChecker) Name() string {
	return c.name
}

// Check reports the breaker's current state.
func (c *CircuitChecker) Check(ctx context.Context) Result {
	state := c.breaker.State()
	details := map[string]any{"circuit_state": state.String()}

	switch state {
	case resilience.StateOpen:
		return Unhealthy("circuit breaker open", ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit breaker recovering").WithDetails(details)
	default:
		return Healthy("circuit breaker closed").WithDetails(details)
	}
}

// DLQSizeProvider reports the number of records persisted in a dead-letter
// queue. Implemented by dlq.DLQ.
type DLQSizeProvider interface {
	Len(ctx context.Context) (int, error)
}

// DLQChecker reports degraded once a dead-letter queue accumulates more
// than a configured number of records, signaling sustained sink failure.
type DLQChecker struct {
	name      string
	dlq       DLQSizeProvider
	threshold int
}

// NewDLQChecker creates a Checker over a DLQ. threshold is the record count
// above which the check reports degraded; 0 disables the threshold (the
// checker only reports the count, never degrades on it).
func NewDLQChecker(name string, d DLQSizeProvider, threshold int) *DLQChecker {
	return &DLQChecker{name: name, dlq: d, threshold: threshold}
}

// Name returns the checker's registration name.
func (c *DLQChecker) Name() string {
	return c.name
}

// Check reports the DLQ's current record count.
func (c *DLQChecker) Check(ctx context.Context) Result {
	count, err := c.dlq.Len(ctx)
	if err != nil {
		return Unhealthy("dead-letter queue unreadable", err)
	}

	details := map[string]any{"dlq_size": count}

	if c.threshold > 0 && count > c.threshold {
		return Degraded(fmt.Sprintf("dead-letter queue has %d records (threshold %d)", count, c.threshold)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("dead-letter queue has %d records", count)).WithDetails(details)
}
