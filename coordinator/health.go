package coordinator

import (
	"github.com/mjdevaccount/market-data-store/health"
	"github.com/mjdevaccount/market-data-store/resilience"
)

// CoordinatorHealth is a cheap, lock-light snapshot of the coordinator's
// vital signs, suitable for a liveness probe that polls frequently.
type CoordinatorHealth struct {
	WorkersAlive int
	QueueSize    int
	Capacity     int
	CircuitState resilience.State
}

// Health returns a point-in-time snapshot. It never blocks on a checker
// running a probe against the sink; for that, use HealthAggregator.
func (c *Coordinator[T]) Health() CoordinatorHealth {
	return CoordinatorHealth{
		WorkersAlive: int(c.workersAlive.Load()),
		QueueSize:    c.queue.Len(),
		Capacity:     c.queue.Cap(),
		CircuitState: c.breaker.State(),
	}
}

// HealthCheckers returns the queue/circuit/DLQ checkers New registered,
// plus any supplied via WithHealthChecker, for a caller that wants to wire
// them into its own aggregator or HTTP health endpoint.
func (c *Coordinator[T]) HealthCheckers() []health.Checker {
	checkers := make([]health.Checker, 0, len(c.extraCheckers)+3)
	checkers = append(checkers,
		health.NewQueueChecker("queue", c.queue, 0.8),
		health.NewCircuitChecker("circuit", c.breaker),
		health.NewDLQChecker("dlq", c.dlqStore, 0),
	)
	for _, nc := range c.extraCheckers {
		checkers = append(checkers, nc.checker)
	}
	return checkers
}

// HealthAggregator returns the health.Aggregator New built from the same
// checkers HealthCheckers exposes, ready for CheckAll or Checker().
func (c *Coordinator[T]) HealthAggregator() *health.Aggregator {
	return c.healthAgg
}

func (c *Coordinator[T]) buildHealthAggregator() *health.Aggregator {
	agg := health.NewAggregator()
	for _, checker := range c.HealthCheckers() {
		agg.Register(checker.Name(), checker)
	}
	return agg
}
