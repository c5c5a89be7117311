// Package resilience provides resilience patterns for sink writes.
//
// It implements common reliability patterns that help a write coordinator
// handle a flaky downstream sink gracefully. Patterns can be composed
// together using the Executor to build robust write pipelines, or driven
// individually when a caller needs finer control over the attempt loop.
//
// # Ecosystem Position
//
// resilience sits between the coordinator's batching loop and the sink:
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                        Write Pipeline                           │
//	├─────────────────────────────────────────────────────────────────┤
//	│                                                                 │
//	│   worker             resilience              Sink                │
//	│   ┌──────┐         ┌───────────┐           ┌─────────┐         │
//	│   │Batch │────────▶│ Executor  │──────────▶│ Write() │         │
//	│   │ Loop │         │           │           │         │         │
//	│   └──────┘         │ ┌───────┐ │           └─────────┘         │
//	│                    │ │RateLim│ │                                │
//	│                    │ ├───────┤ │                                │
//	│                    │ │Bulkhd │ │                                │
//	│                    │ ├───────┤ │                                │
//	│                    │ │Circuit│ │                                │
//	│                    │ ├───────┤ │                                │
//	│                    │ │ Retry │ │                                │
//	│                    │ ├───────┤ │                                │
//	│                    │ │Timeout│ │                                │
//	│                    │ └───────┘ │                                │
//	│                    └───────────┘                                │
//	│                                                                 │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Resilience Patterns
//
// The package provides five core patterns:
//
//   - [CircuitBreaker]: Prevents cascading failures by stopping writes to
//     a failing sink after a threshold is reached. Transitions through
//     Closed → Open → HalfOpen states. BeforeCall/Record let a caller
//     drive the state machine across a multi-attempt retry loop it owns,
//     instead of through a single Execute call.
//
//   - [Retry]: Automatically retries failed writes with configurable
//     backoff strategies (exponential, linear, constant) and jitter.
//     Backoff/IsRetryable expose the same decisions Execute makes
//     internally, for callers driving their own attempt loop.
//
//   - [RateLimiter]: Token bucket rate limiting to prevent overwhelming
//     downstream services. Supports burst allowance and wait-on-limit.
//
//   - [Bulkhead]: Semaphore-based concurrency limiting to prevent resource
//     exhaustion and isolate failures.
//
//   - [Timeout]: Context-based timeout to ensure a write completes within
//     a time limit.
//
// # Quick Start
//
//	// Individual pattern usage
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    MaxFailures:  5,
//	    ResetTimeout: time.Minute,
//	})
//
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return sink.Write(ctx, batch)
//	})
//
//	// Composed patterns with Executor
//	executor := resilience.NewExecutor(
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	        Rate:  100,
//	        Burst: 10,
//	    })),
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts:  3,
//	        InitialDelay: 100 * time.Millisecond,
//	        RetryIf:      resilience.DefaultClassifier,
//	    })),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	err = executor.Execute(ctx, func(ctx context.Context) error {
//	    return sink.Write(ctx, batch)
//	})
//
// # Execution Order
//
// When using the Executor, patterns are applied in this order (outermost first):
//
//  1. Rate Limiter - limits request rate
//  2. Bulkhead - limits concurrency
//  3. Circuit Breaker - prevents cascading failures
//  4. Retry - retries on failure
//  5. Timeout - limits execution time (innermost)
//
// A caller that needs exactly one circuit-breaker verdict per batch — rather
// than one per retry attempt — skips Executor for the breaker stage: call
// BeforeCall once, run its own Backoff/IsRetryable loop, then call Record
// once with the final outcome.
//
// # Thread Safety
//
// All exported types are safe for concurrent use after construction:
//
//   - [CircuitBreaker]: Execute(), BeforeCall(), Record(), and State() are mutex-protected; Reset() is safe
//   - [Retry]: Execute(), Backoff(), IsRetryable() are stateless and safe for concurrent use
//   - [RateLimiter]: Allow(), AllowN(), Wait(), Execute() are mutex-protected
//   - [Bulkhead]: Acquire(), Release(), Execute() use channel-based semaphore
//   - [Timeout]: Execute() is stateless and safe for concurrent use
//   - [Executor]: Execute() is safe; all wrapped patterns maintain their guarantees
//
// # Error Handling
//
// Each pattern returns specific sentinel errors (use errors.Is for checking):
//
//   - [ErrCircuitOpen]: Circuit breaker is in open state, rejecting writes
//   - [ErrMaxRetriesExceeded]: Names retry exhaustion; Retry.Execute returns
//     the last attempt's error instead
//   - [ErrRateLimitExceeded]: Rate limit exceeded and no wait configured
//   - [ErrBulkheadFull]: Bulkhead at maximum concurrency
//   - [ErrTimeout]: Operation exceeded configured timeout
//
// Example error handling:
//
//	err := executor.Execute(ctx, operation)
//	if errors.Is(err, resilience.ErrCircuitOpen) {
//	    // Sink is unhealthy, circuit is protecting it from further load
//	    log.Warn("circuit breaker open, routing batch to DLQ")
//	    return dlq.Save(ctx, batch, err.Error(), "circuit_open", nil)
//	}
//	if errors.Is(err, resilience.ErrRateLimitExceeded) {
//	    // Caller should back off
//	    return nil, status.Error(codes.ResourceExhausted, "rate limited")
//	}
//
// # Callbacks and Observability
//
// Patterns support callbacks for observability integration:
//
//   - CircuitBreakerConfig.OnStateChange: Called on state transitions
//   - RetryConfig.OnRetry: Called before each retry attempt
//   - CircuitBreakerConfig.IsFailure: Custom failure classification
//   - RetryConfig.RetryIf: Custom retry decision logic; [DefaultClassifier]
//     implements the package default (timeout/temporary/unavailable/
//     connection/deadlock)
//
// # Integration
//
// resilience integrates with the rest of this module:
//
//   - worker: drives CircuitBreaker.BeforeCall/Record and Retry.Backoff/
//     IsRetryable around each sink write attempt
//   - observe: the coordinator samples CircuitBreaker.State() into the
//     circuit_state metric; OnStateChange/OnRetry are not wired to observe
//   - health: uses CircuitBreaker.State() to report sink health
package resilience
