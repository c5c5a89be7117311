package feedback

import (
	"context"
	"sync"
	"sync/atomic"
)

// Callback receives a published Event. It must not acquire locks held by the
// publisher and should return quickly; Publish invokes callbacks synchronously
// in registration order and a slow subscriber delays delivery to the rest.
type Callback func(ctx context.Context, event Event)

// Handle identifies a subscription returned by Subscribe, for later Unsubscribe.
type Handle uint64

// ErrorHandler is invoked when a subscriber callback panics. It receives the
// recovered value; the default handler (set via NewBus) swallows it.
type ErrorHandler func(handle Handle, recovered any)

// Bus is an in-process publish/subscribe dispatcher for backpressure Events.
//
// Subscribers are invoked in registration order on the publisher's goroutine.
// A panicking subscriber is recovered, reported to the configured
// ErrorHandler, and does not prevent delivery to the remaining subscribers.
// Publish never returns an error and never blocks beyond the cumulative time
// its subscribers take to run.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Handle]Callback
	order  []Handle
	nextID atomic.Uint64

	onError ErrorHandler
}

// NewBus creates an empty Bus. onError may be nil, in which case subscriber
// panics are silently recovered.
func NewBus(onError ErrorHandler) *Bus {
	return &Bus{
		subs:    make(map[Handle]Callback),
		onError: onError,
	}
}

// Subscribe registers cb and returns a Handle for later Unsubscribe.
func (b *Bus) Subscribe(cb Callback) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := Handle(b.nextID.Add(1))
	b.subs[h] = cb
	b.order = append(b.order, h)
	return h
}

// Unsubscribe removes the subscription identified by h. It is a no-op if h
// was never registered or was already removed.
func (b *Bus) Unsubscribe(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[h]; !ok {
		return
	}
	delete(b.subs, h)
	for i, id := range b.order {
		if id == h {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish delivers event to every current subscriber, in registration order.
// Error isolation is mandatory: a subscriber that panics is recovered and
// reported via ErrorHandler; delivery continues to the rest. Publish is
// best-effort and never fails the publisher.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	order := make([]Handle, len(b.order))
	copy(order, b.order)
	cbs := make([]Callback, len(order))
	for i, h := range order {
		cbs[i] = b.subs[h]
	}
	b.mu.RUnlock()

	for i, cb := range cbs {
		b.dispatch(order[i], cb, ctx, event)
	}
}

func (b *Bus) dispatch(h Handle, cb Callback, ctx context.Context, event Event) {
	defer func() {
		if r := recover(); r != nil && b.onError != nil {
			b.onError(h, r)
		}
	}()
	cb(ctx, event)
}

// Len returns the current subscriber count.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

var (
	defaultBus     *Bus
	defaultBusOnce sync.Once
)

// Default returns the process-wide singleton Bus, created lazily on first
// use. Most library consumers should prefer an explicitly constructed Bus
// injected through their coordinator's configuration; Default exists for
// callers that want the simpler global-instance form described in the
// design notes.
func Default() *Bus {
	defaultBusOnce.Do(func() {
		defaultBus = NewBus(nil)
	})
	return defaultBus
}
