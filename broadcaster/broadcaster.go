// Package broadcaster implements the optional HTTP feedback subscriber: it
// forwards every backpressure event published on a Bus to a configured
// webhook, fire-and-forget, with its own timeout, retry, and rate limiting.
package broadcaster

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mjdevaccount/market-data-store/feedback"
	"github.com/mjdevaccount/market-data-store/observe"
	"github.com/mjdevaccount/market-data-store/resilience"
	"github.com/mjdevaccount/market-data-store/secret"
)

// Config configures an HTTPBroadcaster.
type Config struct {
	// Endpoint is the webhook URL events are POSTed to. If empty, Start
	// logs a warning and the broadcaster becomes a permanent no-op
	// subscriber, per spec's graceful-degradation requirement.
	Endpoint string

	// Timeout bounds a single HTTP round-trip. Default: 2.5s.
	Timeout time.Duration

	// MaxRetries is how many additional attempts follow the first failed
	// delivery. Default: 3.
	MaxRetries int

	// BackoffBase is the linear backoff unit: the Nth retry waits
	// BackoffBase * N. Default: 500ms.
	BackoffBase time.Duration

	// RateLimit caps outbound webhook calls per second. Default: 50/s,
	// burst 10 — generous enough that it only engages under a genuine
	// event storm, never under normal watermark traffic.
	RateLimit resilience.RateLimiterConfig

	// HMACSecret, if set, signs the JSON body with HMAC-SHA256 and sends
	// the hex digest in the X-Signature-256 header, so a receiver can
	// authenticate the payload came from this coordinator. Takes
	// precedence over HMACSecretRef.
	HMACSecret []byte

	// HMACSecretRef is an indirect secret value (a literal, a
	// "secretref:provider:ref", or a "${VAR}" expansion) resolved lazily
	// through SecretResolver on first delivery. Ignored when HMACSecret is
	// set directly.
	HMACSecretRef string

	// SecretResolver resolves HMACSecretRef. Required for HMACSecretRef to
	// take effect; nil leaves the broadcaster unsigned.
	SecretResolver *secret.Resolver

	HTTPClient *http.Client
	Logger     observe.Logger
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 2500 * time.Millisecond
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.RateLimit.Rate <= 0 {
		c.RateLimit.Rate = 50
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
}

// HTTPBroadcaster subscribes to a Bus and forwards every event to a webhook.
type HTTPBroadcaster struct {
	cfg      Config
	executor *resilience.Executor

	mu      sync.Mutex
	bus     *feedback.Bus
	handle  feedback.Handle
	started bool
	noop    bool
	wg      sync.WaitGroup

	secretGroup singleflight.Group
	secretMu    sync.RWMutex
	secretCache []byte
	secretDone  bool
}

// New constructs an HTTPBroadcaster. Start must be called to begin
// forwarding events.
func New(cfg Config) *HTTPBroadcaster {
	cfg.applyDefaults()

	executor := resilience.NewExecutor(
		resilience.WithRateLimiter(resilience.NewRateLimiter(cfg.RateLimit)),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  cfg.MaxRetries + 1,
			InitialDelay: cfg.BackoffBase,
			MaxDelay:     cfg.BackoffBase * time.Duration(cfg.MaxRetries+1),
			Strategy:     resilience.BackoffLinear,
			Jitter:       false,
		})),
		resilience.WithTimeout(cfg.Timeout),
	)

	return &HTTPBroadcaster{cfg: cfg, executor: executor}
}

// Start subscribes the broadcaster to bus. It is idempotent; calling Start
// again before Stop is a no-op. An empty Endpoint degrades Start to a
// permanent no-op subscription rather than an error.
func (b *HTTPBroadcaster) Start(bus *feedback.Bus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}

	if b.cfg.Endpoint == "" {
		if b.cfg.Logger != nil {
			b.cfg.Logger.Warn(context.Background(), "broadcaster: no endpoint configured, running as no-op")
		}
		b.noop = true
		b.started = true
		return nil
	}

	if _, err := url.ParseRequestURI(b.cfg.Endpoint); err != nil {
		return fmt.Errorf("broadcaster: invalid endpoint: %w", err)
	}

	b.bus = bus
	b.handle = bus.Subscribe(func(ctx context.Context, event feedback.Event) {
		b.wg.Add(1)
		go b.deliver(event)
	})
	b.started = true
	return nil
}

// Stop unsubscribes from the Bus and waits for in-flight deliveries to
// finish. Because every delivery self-bounds its duration via the executor's
// timeout and retry budget, Stop always returns in bounded time.
func (b *HTTPBroadcaster) Stop() {
	b.mu.Lock()
	if !b.started || b.noop {
		b.mu.Unlock()
		return
	}
	bus, handle := b.bus, b.handle
	b.started = false
	b.mu.Unlock()

	bus.Unsubscribe(handle)
	b.wg.Wait()
}

// resolveHMACSecret returns the signing secret to use for this delivery. A
// directly configured HMACSecret always wins. Otherwise HMACSecretRef is
// resolved through SecretResolver at most once: concurrent first deliveries
// collapse onto a single resolution via singleflight, and the result is
// cached for the broadcaster's lifetime.
func (b *HTTPBroadcaster) resolveHMACSecret(ctx context.Context) []byte {
	if len(b.cfg.HMACSecret) > 0 {
		return b.cfg.HMACSecret
	}
	if b.cfg.HMACSecretRef == "" || b.cfg.SecretResolver == nil {
		return nil
	}

	b.secretMu.RLock()
	done := b.secretDone
	cached := b.secretCache
	b.secretMu.RUnlock()
	if done {
		return cached
	}

	v, err, _ := b.secretGroup.Do("hmac-secret", func() (interface{}, error) {
		resolved, err := b.cfg.SecretResolver.ResolveValue(ctx, b.cfg.HMACSecretRef)
		if err != nil {
			return nil, err
		}
		return []byte(resolved), nil
	})
	if err != nil {
		if b.cfg.Logger != nil {
			b.cfg.Logger.Warn(ctx, "broadcaster: hmac secret resolution failed",
				observe.Field{Key: "error", Value: err.Error()})
		}
		return nil
	}

	secretBytes := v.([]byte)
	b.secretMu.Lock()
	b.secretCache = secretBytes
	b.secretDone = true
	b.secretMu.Unlock()
	return secretBytes
}

func (b *HTTPBroadcaster) deliver(event feedback.Event) {
	defer b.wg.Done()

	body, err := json.Marshal(event)
	if err != nil {
		return
	}

	op := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.Endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if hmacSecret := b.resolveHMACSecret(ctx); len(hmacSecret) > 0 {
			mac := hmac.New(sha256.New, hmacSecret)
			mac.Write(body)
			req.Header.Set("X-Signature-256", hex.EncodeToString(mac.Sum(nil)))
		}

		resp, err := b.cfg.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("broadcaster: webhook temporarily unavailable, status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return fmt.Errorf("broadcaster: webhook rejected delivery, status %d", resp.StatusCode)
		default:
			return nil
		}
	}

	// Detached from the event's original context: delivery is
	// fire-and-forget and must not be canceled by the producer that
	// triggered the watermark transition.
	ctx := context.Background()
	if err := b.executor.Execute(ctx, op); err != nil && b.cfg.Logger != nil {
		b.cfg.Logger.Warn(ctx, "broadcaster: event delivery failed permanently",
			observe.Field{Key: "error", Value: err.Error()},
			observe.Field{Key: "coordinator_id", Value: event.CoordID},
		)
	}
}
