package coordinator

import (
	"github.com/mjdevaccount/market-data-store/cache"
	"github.com/mjdevaccount/market-data-store/dlq"
	"github.com/mjdevaccount/market-data-store/feedback"
	"github.com/mjdevaccount/market-data-store/health"
	"github.com/mjdevaccount/market-data-store/observe"
	"github.com/mjdevaccount/market-data-store/secret"
)

// Option configures a Coordinator at construction time. Options run, in
// order, before defaults are applied to Config, so WithCoordID can override
// an explicit Config.CoordID and still take part in the usual
// applyDefaults/Validate pass.
type Option[T any] func(*Coordinator[T])

// WithCoordID overrides Config.CoordID. Per the construction precedence
// decision, an explicit id here wins over both Config.CoordID and the
// "default" fallback. Empty ids are ignored.
func WithCoordID[T any](id string) Option[T] {
	return func(c *Coordinator[T]) {
		if id != "" {
			c.cfg.CoordID = id
		}
	}
}

// WithBus supplies a feedback.Bus other than a freshly constructed one, e.g.
// one shared with a sibling coordinator or already subscribed to by a test.
func WithBus[T any](bus *feedback.Bus) Option[T] {
	return func(c *Coordinator[T]) { c.bus = bus }
}

// WithObserver supplies an already-constructed observe.Observer instead of
// letting New build a default one. The caller remains responsible for
// shutting it down; Stop will not call Observer.Shutdown for an
// externally supplied observer.
func WithObserver[T any](obs observe.Observer) Option[T] {
	return func(c *Coordinator[T]) {
		c.observer = obs
		c.observerOwned = false
	}
}

// WithDLQ supplies a dead-letter queue other than the one LoadConfig/Config
// would build from DLQPath.
func WithDLQ[T any](d dlq.DLQ[T]) Option[T] {
	return func(c *Coordinator[T]) { c.dlqStore = d }
}

// WithCache supplies a write-dedup cache other than the in-memory one
// Config.WriteDedupTTL would build.
func WithCache[T any](c2 cache.Cache, keyer cache.Keyer, policy cache.Policy) Option[T] {
	return func(c *Coordinator[T]) {
		c.cacheStore = c2
		c.keyer = keyer
		c.cachePolicy = policy
	}
}

// WithHealthChecker registers an additional health.Checker alongside the
// queue/circuit/DLQ checkers New builds automatically.
func WithHealthChecker[T any](name string, checker health.Checker) Option[T] {
	return func(c *Coordinator[T]) {
		c.extraCheckers = append(c.extraCheckers, namedChecker{name: name, checker: checker})
	}
}

// WithSecretResolver supplies the secret.Resolver used to lazily resolve
// Config.FeedbackHTTPHMACSecretRef inside the HTTP broadcaster.
func WithSecretResolver[T any](r *secret.Resolver) Option[T] {
	return func(c *Coordinator[T]) { c.secretResolver = r }
}

type namedChecker struct {
	name    string
	checker health.Checker
}
