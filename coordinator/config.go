package coordinator

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mjdevaccount/market-data-store/queue"
	"github.com/mjdevaccount/market-data-store/secret"
)

// Config holds every tunable the coordinator needs: queue sizing and
// watermarks, retry and circuit-breaker parameters, the optional feedback
// webhook and write-dedup cache, plus the bulkhead and rate-limit knobs that
// bound concurrent writes and outbound webhook deliveries. Environment
// parsing is intentionally thin: this mirrors the source project's settings
// object, not a general-purpose config framework.
type Config struct {
	// CoordID identifies this coordinator in emitted feedback events, logs,
	// and metrics. COORDINATOR_ID. Default: "default".
	CoordID string

	// SinkKind labels the concrete sink implementation in spans, logs, and
	// worker metadata, e.g. "ohlcv", "options", "news". Optional; not an
	// environment key, set via a struct literal or WithSinkKind.
	SinkKind string

	// Capacity is the bounded queue's maximum depth. COORDINATOR_CAPACITY.
	// Default: 10000.
	Capacity int

	// Workers is the number of sink workers started. COORDINATOR_WORKERS.
	// Default: 4.
	Workers int

	// BatchSize caps a single write attempt. COORDINATOR_BATCH_SIZE.
	// Default: 500.
	BatchSize int

	// FlushInterval bounds how long a worker accumulates a partial batch.
	// COORDINATOR_FLUSH_INTERVAL (seconds). Default: 0.25s.
	FlushInterval time.Duration

	// HighWatermark is the queue depth that triggers Hard backpressure.
	// COORDINATOR_HIGH_WATERMARK. Default: 80% of Capacity.
	HighWatermark int

	// LowWatermark is the queue depth at/below which the queue recovers to
	// Ok. COORDINATOR_LOW_WATERMARK. Default: 50% of Capacity.
	LowWatermark int

	// Overflow selects the queue's overflow strategy. COORDINATOR_OVERFLOW.
	// Default: block.
	Overflow queue.OverflowStrategy

	// MaxConcurrentWrites bounds the number of sink.Write calls in flight
	// across all workers, independent of Workers.
	// COORDINATOR_MAX_CONCURRENT_WRITES. Default: 2 * Workers.
	MaxConcurrentWrites int

	// RetryMaxAttempts caps attempts per batch write. RETRY_MAX_ATTEMPTS.
	// Default: 5.
	RetryMaxAttempts int

	// RetryInitialBackoff is the delay before the first retry.
	// RETRY_INITIAL_BACKOFF_MS. Default: 50ms.
	RetryInitialBackoff time.Duration

	// RetryMaxBackoff caps backoff delay. RETRY_MAX_BACKOFF_MS.
	// Default: 2000ms.
	RetryMaxBackoff time.Duration

	// RetryMultiplier is the exponential backoff base.
	// RETRY_BACKOFF_MULTIPLIER. Default: 2.0.
	RetryMultiplier float64

	// RetryJitter randomizes backoff to [0.5, 1.0] of the computed delay.
	// RETRY_JITTER. Default: true.
	RetryJitter bool

	// CBFailureThreshold is the consecutive-failure count that trips the
	// breaker open. CB_FAILURE_THRESHOLD. Default: 5.
	CBFailureThreshold int

	// CBHalfOpenAfter is the open-state cooldown before a trial call is
	// admitted. CB_HALF_OPEN_AFTER_SEC. Default: 60s.
	CBHalfOpenAfter time.Duration

	// MetricsPollInterval is the metrics sampler's period.
	// METRICS_QUEUE_POLL_SEC. Default: 0.25s.
	MetricsPollInterval time.Duration

	// FeedbackHTTPEnabled starts the HTTP broadcaster when true.
	// FEEDBACK_HTTP_ENABLED. Default: false.
	FeedbackHTTPEnabled bool

	// FeedbackHTTPEndpoint is the webhook URL. FEEDBACK_HTTP_ENDPOINT.
	// Resolved through a secret.Resolver if set.
	FeedbackHTTPEndpoint string

	// FeedbackHTTPTimeout bounds one webhook delivery round-trip.
	// FEEDBACK_HTTP_TIMEOUT. Default: 2.5s.
	FeedbackHTTPTimeout time.Duration

	// FeedbackHTTPMaxRetries caps additional delivery attempts.
	// FEEDBACK_HTTP_MAX_RETRIES. Default: 3.
	FeedbackHTTPMaxRetries int

	// FeedbackHTTPBackoff is the linear backoff unit. FEEDBACK_HTTP_BACKOFF.
	// Default: 500ms.
	FeedbackHTTPBackoff time.Duration

	// FeedbackHTTPHMACSecretRef, if set, is resolved (directly, or via
	// secret.Resolver when it carries a secretref: prefix) to a signing key
	// for outbound webhook bodies. FEEDBACK_HTTP_HMAC_SECRET.
	FeedbackHTTPHMACSecretRef string

	// FeedbackHTTPRateLimit caps outbound webhook deliveries per second.
	// FEEDBACK_HTTP_RATE_LIMIT. 0 means use the broadcaster's own default
	// (50/s, burst 10).
	FeedbackHTTPRateLimit float64

	// DLQPath is the dead-letter queue's backing file. DLQ_PATH. Resolved
	// through a secret.Resolver if set. Empty disables the DLQ (a Noop is
	// used; batches routed to it are discarded without a drop count).
	DLQPath string

	// WriteDedupTTL enables the write-dedup cache for this long after a
	// successful write. COORDINATOR_WRITE_DEDUP_TTL. 0 disables the dedup
	// cache.
	WriteDedupTTL time.Duration
}

func (c *Config) applyDefaults() {
	if c.CoordID == "" {
		c.CoordID = "default"
	}
	if c.Capacity <= 0 {
		c.Capacity = 10_000
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 250 * time.Millisecond
	}
	if c.HighWatermark <= 0 {
		c.HighWatermark = int(0.8 * float64(c.Capacity))
	}
	if c.LowWatermark <= 0 {
		c.LowWatermark = int(0.5 * float64(c.Capacity))
	}
	if c.MaxConcurrentWrites <= 0 {
		c.MaxConcurrentWrites = 2 * c.Workers
	}
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = 5
	}
	if c.RetryInitialBackoff <= 0 {
		c.RetryInitialBackoff = 50 * time.Millisecond
	}
	if c.RetryMaxBackoff <= 0 {
		c.RetryMaxBackoff = 2000 * time.Millisecond
	}
	if c.RetryMultiplier <= 0 {
		c.RetryMultiplier = 2.0
	}
	if c.CBFailureThreshold <= 0 {
		c.CBFailureThreshold = 5
	}
	if c.CBHalfOpenAfter <= 0 {
		c.CBHalfOpenAfter = 60 * time.Second
	}
	if c.MetricsPollInterval <= 0 {
		c.MetricsPollInterval = 250 * time.Millisecond
	}
	if c.FeedbackHTTPTimeout <= 0 {
		c.FeedbackHTTPTimeout = 2500 * time.Millisecond
	}
	if c.FeedbackHTTPMaxRetries <= 0 {
		c.FeedbackHTTPMaxRetries = 3
	}
	if c.FeedbackHTTPBackoff <= 0 {
		c.FeedbackHTTPBackoff = 500 * time.Millisecond
	}
}

// Validate rejects invalid configuration combinations eagerly, before a
// Coordinator is built from them, rather than surfacing them later as
// confusing runtime behavior.
func (c *Config) Validate() error {
	if c.LowWatermark >= c.HighWatermark {
		return fmt.Errorf("%w: low_watermark=%d high_watermark=%d", ErrInvalidWatermarks, c.LowWatermark, c.HighWatermark)
	}
	if c.HighWatermark > c.Capacity {
		return fmt.Errorf("%w: high_watermark=%d capacity=%d", ErrInvalidWatermarks, c.HighWatermark, c.Capacity)
	}
	if c.RetryMultiplier < 1.0 {
		return fmt.Errorf("%w: retry_backoff_multiplier=%v", ErrInvalidConfig, c.RetryMultiplier)
	}
	if c.FeedbackHTTPRateLimit < 0 {
		return fmt.Errorf("%w: feedback_http_rate_limit=%v", ErrInvalidConfig, c.FeedbackHTTPRateLimit)
	}
	return nil
}

// LoadConfig populates a Config from the recognized environment keys,
// applying defaults and validating eagerly. resolver may be nil, in which
// case DLQPath, FeedbackHTTPEndpoint and FeedbackHTTPHMACSecretRef are taken
// verbatim from the environment.
func LoadConfig(ctx context.Context, resolver *secret.Resolver) (Config, error) {
	var cfg Config

	cfg.CoordID = envString("COORDINATOR_ID", "")
	cfg.Capacity = envInt("COORDINATOR_CAPACITY", 10_000)
	cfg.Workers = envInt("COORDINATOR_WORKERS", 4)
	cfg.BatchSize = envInt("COORDINATOR_BATCH_SIZE", 500)
	cfg.FlushInterval = envSeconds("COORDINATOR_FLUSH_INTERVAL", 0.25)
	cfg.HighWatermark = envInt("COORDINATOR_HIGH_WATERMARK", 0)
	cfg.LowWatermark = envInt("COORDINATOR_LOW_WATERMARK", 0)
	cfg.Overflow = queue.ParseOverflowStrategy(envString("COORDINATOR_OVERFLOW", "block"))
	cfg.MaxConcurrentWrites = envInt("COORDINATOR_MAX_CONCURRENT_WRITES", 0)

	cfg.RetryMaxAttempts = envInt("RETRY_MAX_ATTEMPTS", 5)
	cfg.RetryInitialBackoff = envMillis("RETRY_INITIAL_BACKOFF_MS", 50)
	cfg.RetryMaxBackoff = envMillis("RETRY_MAX_BACKOFF_MS", 2000)
	cfg.RetryMultiplier = envFloat("RETRY_BACKOFF_MULTIPLIER", 2.0)
	cfg.RetryJitter = envBool("RETRY_JITTER", true)

	cfg.CBFailureThreshold = envInt("CB_FAILURE_THRESHOLD", 5)
	cfg.CBHalfOpenAfter = envSeconds("CB_HALF_OPEN_AFTER_SEC", 60.0)

	cfg.MetricsPollInterval = envSeconds("METRICS_QUEUE_POLL_SEC", 0.25)

	cfg.FeedbackHTTPEnabled = envBool("FEEDBACK_HTTP_ENABLED", false)
	cfg.FeedbackHTTPTimeout = envSeconds("FEEDBACK_HTTP_TIMEOUT", 2.5)
	cfg.FeedbackHTTPMaxRetries = envInt("FEEDBACK_HTTP_MAX_RETRIES", 3)
	cfg.FeedbackHTTPBackoff = envSeconds("FEEDBACK_HTTP_BACKOFF", 0.5)
	cfg.FeedbackHTTPRateLimit = envFloat("FEEDBACK_HTTP_RATE_LIMIT", 0)

	cfg.WriteDedupTTL = envSeconds("COORDINATOR_WRITE_DEDUP_TTL", 0)

	endpoint := envString("FEEDBACK_HTTP_ENDPOINT", "")
	hmacRef := envString("FEEDBACK_HTTP_HMAC_SECRET", "")
	dlqPath := envString("DLQ_PATH", "")

	var err error
	if resolver != nil {
		if endpoint, err = resolver.ResolveValue(ctx, endpoint); err != nil {
			return Config{}, fmt.Errorf("coordinator: resolve FEEDBACK_HTTP_ENDPOINT: %w", err)
		}
		if dlqPath, err = resolver.ResolveValue(ctx, dlqPath); err != nil {
			return Config{}, fmt.Errorf("coordinator: resolve DLQ_PATH: %w", err)
		}
		// A secretref: FEEDBACK_HTTP_HMAC_SECRET is resolved lazily by the
		// broadcaster itself on first delivery (deduped via singleflight and
		// then cached for the broadcaster's lifetime); only plain
		// (non-secretref) values are resolved eagerly here so callers that
		// never wire a resolver into the coordinator still get
		// ${VAR}-expansion.
		if _, _, isRef := secret.ParseSecretRef(hmacRef); !isRef {
			if hmacRef, err = resolver.ResolveValue(ctx, hmacRef); err != nil {
				return Config{}, fmt.Errorf("coordinator: resolve FEEDBACK_HTTP_HMAC_SECRET: %w", err)
			}
		}
	}
	cfg.FeedbackHTTPEndpoint = endpoint
	cfg.FeedbackHTTPHMACSecretRef = hmacRef
	cfg.DLQPath = dlqPath

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// envSeconds reads a float64-seconds configuration value and returns it as
// a time.Duration.
func envSeconds(key string, defSeconds float64) time.Duration {
	return time.Duration(envFloat(key, defSeconds) * float64(time.Second))
}

// envMillis reads an integer-milliseconds configuration value and returns
// it as a time.Duration.
func envMillis(key string, defMillis int) time.Duration {
	return time.Duration(envInt(key, defMillis)) * time.Millisecond
}
