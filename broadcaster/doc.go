// Package broadcaster forwards Bus events to an external webhook.
//
// # Core Components
//
//   - [HTTPBroadcaster]: subscribes to a [feedback.Bus], POSTs each event
//   - [Config]: endpoint, timeout, retry, and rate-limit settings
//
// # Delivery
//
// Each event is delivered on its own goroutine so the Bus's publish call
// never blocks on network I/O. Delivery runs through a
// [resilience.Executor] composing a rate limiter, a linear-backoff retry
// (per spec: backoff_base * attempt), and a per-attempt timeout. A
// persistently failing delivery is dropped and logged; it is never
// resubmitted to the Bus.
//
// # Quick Start
//
//	b := broadcaster.New(broadcaster.Config{
//	    Endpoint: "https://ops.example.com/hooks/backpressure",
//	    HMACSecret: secret,
//	})
//	if err := b.Start(feedback.Default()); err != nil { ... }
//	defer b.Stop()
//
// # Graceful Degradation
//
// An empty Endpoint makes Start a permanent no-op: the broadcaster never
// subscribes, and Stop is a no-op too. This lets a coordinator always
// construct a broadcaster and call Start/Stop unconditionally regardless of
// whether FEEDBACK_HTTP_ENABLED is set.
//
// # Integration
//
//   - feedback: the event source
//   - resilience: Executor composes RateLimiter, Retry, Timeout
//   - coordinator: owns the broadcaster's lifecycle alongside the worker pool
package broadcaster
