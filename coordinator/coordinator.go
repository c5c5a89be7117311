// Package coordinator assembles a bounded queue, a pool of sink workers, a
// circuit breaker, a retry policy, a dead-letter queue, and a feedback bus
// into the single write-coordinator façade an ingestion pipeline submits
// items to.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mjdevaccount/market-data-store/broadcaster"
	"github.com/mjdevaccount/market-data-store/cache"
	"github.com/mjdevaccount/market-data-store/dlq"
	"github.com/mjdevaccount/market-data-store/feedback"
	"github.com/mjdevaccount/market-data-store/health"
	"github.com/mjdevaccount/market-data-store/observe"
	"github.com/mjdevaccount/market-data-store/queue"
	"github.com/mjdevaccount/market-data-store/resilience"
	"github.com/mjdevaccount/market-data-store/secret"
	"github.com/mjdevaccount/market-data-store/sink"
	"github.com/mjdevaccount/market-data-store/worker"
)

// Coordinator is a high-throughput write path for a single sink: items
// enter through Submit/SubmitMany, land in a bounded queue that emits
// backpressure events as it fills, and are drained by a pool of sink
// workers under a shared circuit breaker and retry policy. Writes a worker
// cannot deliver land in a dead-letter queue instead of being lost silently.
//
// A Coordinator is constructed with New, started lazily on first Submit (or
// explicitly via Start), and torn down with Stop.
type Coordinator[T any] struct {
	cfg  Config
	sink sink.Sink[T]
	meta observe.WorkerMeta

	bus      *feedback.Bus
	queue    *queue.BoundedQueue[T]
	breaker  *resilience.CircuitBreaker
	retry    *resilience.Retry
	bulkhead *resilience.Bulkhead

	dlqStore    dlq.DLQ[T]
	cacheStore  cache.Cache
	keyer       cache.Keyer
	cachePolicy cache.Policy

	observer      observe.Observer
	observerOwned bool
	middleware    *observe.Middleware
	metrics       observe.Metrics
	logger        observe.Logger

	secretResolver *secret.Resolver
	broadcast      *broadcaster.HTTPBroadcaster

	extraCheckers []namedChecker
	healthAgg     *health.Aggregator

	startOnce sync.Once
	startErr  error
	started   bool
	stopping  atomic.Bool

	runCancel context.CancelFunc
	workers   []*worker.SinkWorker[T]
	workerWG  sync.WaitGroup

	samplerStop chan struct{}
	samplerWG   sync.WaitGroup

	workersAlive atomic.Int64
}

// New constructs a Coordinator for sinkImpl. It does not start workers;
// call Start, or Submit, to begin draining the queue. sinkImpl must not be
// nil.
func New[T any](sinkImpl sink.Sink[T], cfg Config, opts ...Option[T]) (*Coordinator[T], error) {
	if sinkImpl == nil {
		return nil, ErrNilSink
	}

	c := &Coordinator[T]{cfg: cfg, sink: sinkImpl}
	for _, opt := range opts {
		opt(c)
	}
	c.cfg.applyDefaults()
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	c.meta = observe.WorkerMeta{CoordID: c.cfg.CoordID, SinkKind: c.cfg.SinkKind}

	if c.bus == nil {
		c.bus = feedback.NewBus(nil)
	}

	c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:         c.cfg.CBFailureThreshold,
		ResetTimeout:        c.cfg.CBHalfOpenAfter,
		HalfOpenMaxRequests: 1,
		IsFailure:           resilience.DefaultClassifier,
	})

	c.retry = resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  c.cfg.RetryMaxAttempts,
		InitialDelay: c.cfg.RetryInitialBackoff,
		MaxDelay:     c.cfg.RetryMaxBackoff,
		Multiplier:   c.cfg.RetryMultiplier,
		Strategy:     resilience.BackoffExponential,
		Jitter:       c.cfg.RetryJitter,
		RetryIf:      resilience.DefaultClassifier,
	})

	c.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		MaxConcurrent: c.cfg.MaxConcurrentWrites,
	})

	if c.dlqStore == nil {
		if c.cfg.DLQPath != "" {
			d, err := dlq.Open[T](c.cfg.DLQPath)
			if err != nil {
				return nil, fmt.Errorf("coordinator: open dlq: %w", err)
			}
			c.dlqStore = d
		} else {
			c.dlqStore = dlq.NewNoop[T]()
		}
	}

	if c.cacheStore == nil && c.cfg.WriteDedupTTL > 0 {
		c.cacheStore = cache.NewMemoryCache(cache.Policy{DefaultTTL: c.cfg.WriteDedupTTL, MaxTTL: c.cfg.WriteDedupTTL})
		c.keyer = cache.NewDefaultKeyer()
		c.cachePolicy = cache.Policy{DefaultTTL: c.cfg.WriteDedupTTL, MaxTTL: c.cfg.WriteDedupTTL}
	}

	if c.observer == nil {
		obs, err := observe.NewObserver(context.Background(), observe.Config{
			ServiceName: "coordinator-" + c.cfg.CoordID,
			Tracing:     observe.TracingConfig{Enabled: false, Exporter: "none"},
			Metrics:     observe.MetricsConfig{Enabled: false, Exporter: "none"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		})
		if err != nil {
			return nil, fmt.Errorf("coordinator: build default observer: %w", err)
		}
		c.observer = obs
		c.observerOwned = true
	}

	mw, err := observe.MiddlewareFromObserver(c.observer)
	if err != nil {
		return nil, fmt.Errorf("coordinator: build middleware: %w", err)
	}
	c.middleware = mw
	c.logger = c.observer.Logger()

	metrics, err := observe.MetricsFromObserver(c.observer)
	if err != nil {
		return nil, fmt.Errorf("coordinator: build metrics: %w", err)
	}
	c.metrics = metrics

	c.queue = queue.New(queue.Config[T]{
		Capacity:      c.cfg.Capacity,
		HighWatermark: c.cfg.HighWatermark,
		LowWatermark:  c.cfg.LowWatermark,
		Overflow:      c.cfg.Overflow,
		CoordID:       c.cfg.CoordID,
		Bus:           c.bus,
		OnDrop:        c.onDrop,
	})

	c.healthAgg = c.buildHealthAggregator()

	return c, nil
}

// onDrop is the queue's DropOldest eviction callback. Per the drop-oldest
// open question, an evicted item is routed to the DLQ best-effort; it is
// counted separately from an outright overflow rejection either way.
func (c *Coordinator[T]) onDrop(item T) {
	ctx := context.Background()
	if err := c.dlqStore.Save(ctx, []T{item}, "dropped by drop_oldest overflow policy", "overflow", nil); err != nil {
		c.metrics.RecordDropped(ctx, c.meta, "dlq_on_drop_failed", 1)
		if c.logger != nil {
			c.logger.Warn(ctx, "coordinator: failed to dlq a dropped item", observe.Field{Key: "error", Value: err.Error()})
		}
		return
	}
	c.metrics.RecordDropped(ctx, c.meta, "overflow", 1)
}

// Start begins running the sink worker pool and the metrics sampler. It is
// idempotent: subsequent calls, whether explicit or made implicitly by the
// first Submit, return the result of the first call.
func (c *Coordinator[T]) Start(ctx context.Context) error {
	c.startOnce.Do(func() {
		c.startErr = c.start(ctx)
	})
	return c.startErr
}

func (c *Coordinator[T]) start(ctx context.Context) error {
	if opener, ok := c.sink.(sink.Opener); ok {
		if err := opener.Open(ctx); err != nil {
			return fmt.Errorf("coordinator: sink open: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.runCancel = cancel

	c.workers = make([]*worker.SinkWorker[T], c.cfg.Workers)
	for i := range c.workers {
		w, err := worker.New(worker.Config[T]{
			CoordID:       c.cfg.CoordID,
			WorkerID:      fmt.Sprintf("%s-w%d", c.cfg.CoordID, i),
			SinkKind:      c.cfg.SinkKind,
			BatchSize:     c.cfg.BatchSize,
			FlushInterval: c.cfg.FlushInterval,
			Queue:         c.queue,
			Sink:          withBulkhead[T](c.sink, c.bulkhead),
			Retry:         c.retry,
			Breaker:       c.breaker,
			DLQ:           c.dlqStore,
			Cache:         c.cacheStore,
			Keyer:         c.keyer,
			CachePolicy:   c.cachePolicy,
			Middleware:    c.middleware,
			Metrics:       c.metrics,
			Logger:        c.logger,
		})
		if err != nil {
			cancel()
			return fmt.Errorf("coordinator: build worker %d: %w", i, err)
		}
		c.workers[i] = w
	}

	for _, w := range c.workers {
		c.workerWG.Add(1)
		c.workersAlive.Add(1)
		go func(w *worker.SinkWorker[T]) {
			defer c.workerWG.Done()
			defer c.workersAlive.Add(-1)
			w.Run(runCtx)
		}(w)
	}

	c.samplerStop = make(chan struct{})
	c.samplerWG.Add(1)
	go c.runSampler(runCtx)

	if c.cfg.FeedbackHTTPEnabled {
		rateLimit := resilience.RateLimiterConfig{}
		if c.cfg.FeedbackHTTPRateLimit > 0 {
			rateLimit.Rate = c.cfg.FeedbackHTTPRateLimit
			rateLimit.Burst = int(c.cfg.FeedbackHTTPRateLimit)
		}
		c.broadcast = broadcaster.New(broadcaster.Config{
			Endpoint:       c.cfg.FeedbackHTTPEndpoint,
			Timeout:        c.cfg.FeedbackHTTPTimeout,
			MaxRetries:     c.cfg.FeedbackHTTPMaxRetries,
			BackoffBase:    c.cfg.FeedbackHTTPBackoff,
			RateLimit:      rateLimit,
			HMACSecretRef:  c.cfg.FeedbackHTTPHMACSecretRef,
			SecretResolver: c.secretResolver,
			Logger:         c.logger,
		})
		if err := c.broadcast.Start(c.bus); err != nil {
			cancel()
			return fmt.Errorf("coordinator: start broadcaster: %w", err)
		}
	}

	c.started = true
	return nil
}

func (c *Coordinator[T]) runSampler(ctx context.Context) {
	defer c.samplerWG.Done()
	ticker := time.NewTicker(c.cfg.MetricsPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sample(ctx)
		case <-c.samplerStop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Coordinator[T]) sample(ctx context.Context) {
	c.metrics.SetQueueDepth(ctx, c.meta, int64(c.queue.Len()))
	c.metrics.SetWorkersAlive(ctx, c.meta, c.workersAlive.Load())
	c.metrics.SetCircuitState(ctx, c.meta, circuitStateGauge(c.breaker.State()))
}

func circuitStateGauge(s resilience.State) int64 {
	switch s {
	case resilience.StateOpen:
		return 1
	case resilience.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// Submit enqueues a single item, starting the coordinator on first call.
// It returns queue.ErrShuttingDown once Stop has begun, and queue.ErrQueueFull
// (or blocks, per Config.Overflow) when the queue is full.
func (c *Coordinator[T]) Submit(ctx context.Context, item T) error {
	if c.stopping.Load() {
		return queue.ErrShuttingDown
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	if err := c.queue.Put(ctx, item); err != nil {
		if err == queue.ErrQueueFull {
			c.metrics.RecordDropped(ctx, c.meta, "queue_full", 1)
		}
		return err
	}
	c.metrics.RecordSubmitted(ctx, c.meta, 1)
	return nil
}

// SubmitMany submits items in order, stopping at the first error. Items
// before the failing one have already been accepted into the queue.
func (c *Coordinator[T]) SubmitMany(ctx context.Context, items []T) error {
	for i, item := range items {
		if err := c.Submit(ctx, item); err != nil {
			return fmt.Errorf("coordinator: submit item %d of %d: %w", i, len(items), err)
		}
	}
	return nil
}

// Stop drains the queue and shuts every collaborator down. New submissions
// are rejected immediately. Queued and in-flight work is given until
// deadline to finish; anything still outstanding after that is aborted by
// canceling the workers' context, which causes a worker's in-progress write
// to fail fast and its partial batch to land in the dead-letter queue
// instead of being lost silently. Stop is idempotent.
func (c *Coordinator[T]) Stop(ctx context.Context, deadline time.Duration) error {
	if !c.stopping.CompareAndSwap(false, true) {
		return nil
	}
	if !c.started {
		return nil
	}

	c.queue.Stop()

	done := make(chan struct{})
	go func() {
		c.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(deadline):
		if c.logger != nil {
			c.logger.Warn(ctx, "coordinator: shutdown deadline exceeded, aborting outstanding workers")
		}
		c.runCancel()
		<-done
	}

	close(c.samplerStop)
	c.samplerWG.Wait()

	if c.broadcast != nil {
		c.broadcast.Stop()
	}

	c.bus.Publish(ctx, feedback.Event{
		CoordID:   c.cfg.CoordID,
		QueueSize: c.queue.Len(),
		Capacity:  c.queue.Cap(),
		Level:     feedback.Ok,
		Source:    feedback.Source,
		Timestamp: nowSeconds(),
		Reason:    "coordinator_stopped",
	})

	if err := c.dlqStore.Close(); err != nil && c.logger != nil {
		c.logger.Warn(ctx, "coordinator: dlq close failed", observe.Field{Key: "error", Value: err.Error()})
	}

	if closer, ok := c.sink.(sink.Closer); ok {
		if err := closer.Close(ctx); err != nil && c.logger != nil {
			c.logger.Warn(ctx, "coordinator: sink close failed", observe.Field{Key: "error", Value: err.Error()})
		}
	}

	if c.observerOwned {
		if err := c.observer.Shutdown(ctx); err != nil && c.logger != nil {
			c.logger.Warn(ctx, "coordinator: observer shutdown failed", observe.Field{Key: "error", Value: err.Error()})
		}
	}

	return nil
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
