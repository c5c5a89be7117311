// Package cache provides deterministic write-deduplication for sink batches.
//
// It provides a Cache interface with a memory implementation, SHA-256-based
// key derivation, and TTL policies. A sink worker hashes a batch before
// writing it; if the hash was recently written, the retry is recognized and
// skipped instead of re-applied to the sink.
//
// # Core Components
//
//   - [Cache]: Interface for recording recently-written batch fingerprints (Get/Set/Delete)
//   - [MemoryCache]: Thread-safe in-memory cache with TTL support
//   - [Keyer]: Interface for deterministic cache key generation
//   - [DefaultKeyer]: SHA-256 based keyer with canonical JSON serialization
//   - [Policy]: Configures TTL defaults, maximums, and unsafe-sink handling
//
// # Quick Start
//
//	// Create cache with policy
//	policy := cache.DefaultPolicy() // 5min TTL, 1hr max
//	memCache := cache.NewMemoryCache(policy)
//	keyer := cache.NewDefaultKeyer()
//
//	// Before writing a batch, check whether it was already applied
//	key, _ := keyer.Key(sinkKind, batch)
//	if _, hit := memCache.Get(ctx, key); hit {
//	    return nil // already written, skip the retry
//	}
//	if err := sink.Write(ctx, batch); err != nil {
//	    return err
//	}
//	_ = memCache.Set(ctx, key, nil, policy.EffectiveTTL(0))
//
// # Key Generation
//
// The [DefaultKeyer] generates deterministic cache keys using:
//
//	cache:<scope>:<hash>
//
// Where scope is typically the sink kind and hash is the first 16 hex
// characters of SHA-256(canonical JSON(input)). Canonical JSON ensures map
// keys are sorted for deterministic serialization regardless of batch
// construction order.
//
// # TTL Policies
//
// The [Policy] type controls caching behavior:
//
//   - DefaultTTL: Applied when no specific TTL is provided
//   - MaxTTL: Upper bound for any TTL (prevents excessive caching)
//   - AllowUnsafe: Whether to dedupe writes for sinks not known to be idempotent
//
// Preset policies:
//
//   - [DefaultPolicy]: 5 minute default, 1 hour max, unsafe=false
//   - [NoCachePolicy]: Disabled (0 TTL)
//
// # Thread Safety
//
// All exported types are safe for concurrent use:
//
//   - [MemoryCache]: sync.RWMutex protects all operations
//   - [DefaultKeyer]: Stateless, concurrent-safe
//   - [Policy]: Immutable struct, concurrent-safe
//
// # Error Handling
//
// Sentinel errors (use errors.Is for checking):
//
//   - [ErrNilCache]: Cache is nil
//   - [ErrInvalidKey]: Key is empty, whitespace-only, or contains newlines
//   - [ErrKeyTooLong]: Key exceeds MaxKeyLength (512 characters)
//
// Note: Cache.Get never returns errors - it returns (nil, false) on miss.
// Key validation is performed via [ValidateKey] function.
//
// # Integration
//
//   - worker: a SinkWorker checks the cache before re-applying a retried batch
//   - observe: log cache hits/misses via the structured logger
//   - resilience: combine with retry/circuit breaker for robust dedup under failure
package cache
