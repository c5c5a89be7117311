package queue

import (
	"context"
	"sync"
	"time"

	"github.com/mjdevaccount/market-data-store/feedback"
)

// Config configures a BoundedQueue.
type Config[T any] struct {
	// Capacity is the maximum number of items the queue may hold.
	Capacity int

	// HighWatermark is the depth at which the queue enters the Hard
	// backpressure level. Defaults to 0.8 * Capacity.
	HighWatermark int

	// LowWatermark is the depth at or below which the queue recovers to Ok.
	// Defaults to 0.5 * Capacity.
	LowWatermark int

	// Overflow selects the behavior when Put is called on a full queue.
	Overflow OverflowStrategy

	// CoordID identifies the owning coordinator in emitted Events.
	CoordID string

	// OnDrop, if set, is invoked with an item evicted under the DropOldest
	// strategy. It runs outside the queue's internal lock.
	OnDrop func(item T)

	// Bus receives watermark transition Events. If nil, no events are
	// published (the queue still tracks depth and serves Put/Get).
	Bus *feedback.Bus
}

func (c *Config[T]) applyDefaults() {
	if c.HighWatermark <= 0 {
		c.HighWatermark = int(0.8 * float64(c.Capacity))
	}
	if c.LowWatermark <= 0 {
		c.LowWatermark = int(0.5 * float64(c.Capacity))
	}
	if c.CoordID == "" {
		c.CoordID = "default"
	}
}

// BoundedQueue is a capacity-limited FIFO with watermark-driven backpressure
// feedback. Put and Get suspend cooperatively; Stop wakes every blocked
// caller. The size counter and watermark latches are protected by a single
// mutex so emission decisions are made atomically with the size change that
// triggers them.
type BoundedQueue[T any] struct {
	cfg Config[T]

	mu       sync.Mutex
	items    []T
	stopped  bool
	hardFire bool
	softFire bool
	notEmpty chan struct{}
	notFull  chan struct{}
}

// New creates a BoundedQueue from cfg. Capacity must be positive.
func New[T any](cfg Config[T]) *BoundedQueue[T] {
	cfg.applyDefaults()
	return &BoundedQueue[T]{
		cfg:      cfg,
		items:    make([]T, 0, cfg.Capacity),
		notEmpty: make(chan struct{}),
		notFull:  make(chan struct{}),
	}
}

// Put enqueues item, honoring the configured overflow strategy. It returns
// ErrShuttingDown once Stop has been called, ErrQueueFull under the Error
// strategy when full, or ctx.Err() if ctx is done while blocked under the
// Block strategy.
func (q *BoundedQueue[T]) Put(ctx context.Context, item T) error {
	for {
		q.mu.Lock()
		if q.stopped {
			q.mu.Unlock()
			return ErrShuttingDown
		}

		if len(q.items) < q.cfg.Capacity {
			q.items = append(q.items, item)
			event, publish := q.checkWatermarkLocked()
			ch := q.notEmpty
			q.notEmpty = make(chan struct{})
			q.mu.Unlock()
			close(ch)
			if publish && q.cfg.Bus != nil {
				q.cfg.Bus.Publish(ctx, event)
			}
			return nil
		}

		switch q.cfg.Overflow {
		case Error:
			q.mu.Unlock()
			return ErrQueueFull

		case DropOldest:
			dropped := q.items[0]
			q.items = append(q.items[:0:0], q.items[1:]...)
			q.items = append(q.items, item)
			event, publish := q.checkWatermarkLocked()
			q.mu.Unlock()
			if q.cfg.OnDrop != nil {
				q.cfg.OnDrop(dropped)
			}
			if publish && q.cfg.Bus != nil {
				q.cfg.Bus.Publish(ctx, event)
			}
			return nil

		default: // Block
			waitCh := q.notFull
			q.mu.Unlock()
			select {
			case <-waitCh:
				// space freed (or Stop), loop and recheck
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Get blocks until an item is available, the queue is stopped, or ctx is
// done. ok is false only when the queue is empty and stopped (or ctx expired
// first), matching the "wakes all blocked getters with a sentinel" contract.
func (q *BoundedQueue[T]) Get(ctx context.Context) (item T, ok bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item = q.items[0]
			q.items = append(q.items[:0:0], q.items[1:]...)
			event, publish := q.checkWatermarkLocked()
			ch := q.notFull
			q.notFull = make(chan struct{})
			q.mu.Unlock()
			close(ch)
			if publish && q.cfg.Bus != nil {
				q.cfg.Bus.Publish(ctx, event)
			}
			return item, true
		}

		if q.stopped {
			q.mu.Unlock()
			var zero T
			return zero, false
		}

		waitCh := q.notEmpty
		q.mu.Unlock()
		select {
		case <-waitCh:
			// item arrived (or Stop), loop and recheck
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

// Len returns the current depth.
func (q *BoundedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the configured capacity.
func (q *BoundedQueue[T]) Cap() int {
	return q.cfg.Capacity
}

// Stop marks the queue as shutting down and wakes every blocked Put and Get
// call. Subsequent Put calls return ErrShuttingDown; Get drains any
// remaining items before returning ok=false. Stop is idempotent.
func (q *BoundedQueue[T]) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	emptyCh, fullCh := q.notEmpty, q.notFull
	q.notEmpty = make(chan struct{})
	q.notFull = make(chan struct{})
	q.mu.Unlock()

	close(emptyCh)
	close(fullCh)
}

// checkWatermarkLocked evaluates the latched watermark transition rules
// against the current depth and updates the latch flags. It must be called
// with q.mu held and returns the Event to publish (after unlocking) and
// whether a transition actually occurred. At most one event is produced per
// boundary crossing, per the high/soft/ok latch contract.
func (q *BoundedQueue[T]) checkWatermarkLocked() (feedback.Event, bool) {
	size := len(q.items)

	base := feedback.Event{
		CoordID:   q.cfg.CoordID,
		QueueSize: size,
		Capacity:  q.cfg.Capacity,
		Source:    feedback.Source,
		Timestamp: nowSeconds(),
	}

	switch {
	case size >= q.cfg.HighWatermark && !q.hardFire:
		q.hardFire = true
		q.softFire = true
		base.Level = feedback.Hard
		return base, true

	case size > q.cfg.LowWatermark && size < q.cfg.HighWatermark && !q.softFire && !q.hardFire:
		q.softFire = true
		base.Level = feedback.Soft
		return base, true

	case size <= q.cfg.LowWatermark && (q.hardFire || q.softFire):
		q.hardFire = false
		q.softFire = false
		base.Level = feedback.Ok
		base.Reason = "queue_recovered"
		return base, true

	default:
		return feedback.Event{}, false
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
