package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mjdevaccount/market-data-store/feedback"
)

func TestBoundedQueue_PutGetFIFO(t *testing.T) {
	q := New[int](Config[int]{Capacity: 10})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := q.Put(ctx, i); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		item, ok := q.Get(ctx)
		if !ok {
			t.Fatalf("Get() ok = false, want true")
		}
		if item != i {
			t.Errorf("Get() = %d, want %d (FIFO order)", item, i)
		}
	}
}

func TestBoundedQueue_ErrorStrategy(t *testing.T) {
	q := New[int](Config[int]{Capacity: 2, Overflow: Error})
	ctx := context.Background()

	if err := q.Put(ctx, 1); err != nil {
		t.Fatalf("first Put error = %v", err)
	}
	if err := q.Put(ctx, 2); err != nil {
		t.Fatalf("second Put error = %v", err)
	}
	if err := q.Put(ctx, 3); err != ErrQueueFull {
		t.Errorf("third Put error = %v, want ErrQueueFull", err)
	}
}

func TestBoundedQueue_DropOldest(t *testing.T) {
	var dropped []int
	var mu sync.Mutex
	q := New[int](Config[int]{
		Capacity: 2,
		Overflow: DropOldest,
		OnDrop: func(item int) {
			mu.Lock()
			dropped = append(dropped, item)
			mu.Unlock()
		},
	})
	ctx := context.Background()

	_ = q.Put(ctx, 1)
	_ = q.Put(ctx, 2)
	_ = q.Put(ctx, 3) // evicts 1

	mu.Lock()
	if len(dropped) != 1 || dropped[0] != 1 {
		t.Errorf("dropped = %v, want [1]", dropped)
	}
	mu.Unlock()

	first, _ := q.Get(ctx)
	second, _ := q.Get(ctx)
	if first != 2 || second != 3 {
		t.Errorf("got (%d, %d), want (2, 3)", first, second)
	}
}

func TestBoundedQueue_BlockStrategyUnblocksOnGet(t *testing.T) {
	q := New[int](Config[int]{Capacity: 1, Overflow: Block})
	ctx := context.Background()

	if err := q.Put(ctx, 1); err != nil {
		t.Fatalf("Put error = %v", err)
	}

	putDone := make(chan error, 1)
	go func() {
		putDone <- q.Put(ctx, 2)
	}()

	select {
	case <-putDone:
		t.Fatal("blocked Put returned before a slot freed")
	case <-time.After(30 * time.Millisecond):
	}

	if _, ok := q.Get(ctx); !ok {
		t.Fatal("Get() ok = false")
	}

	select {
	case err := <-putDone:
		if err != nil {
			t.Errorf("unblocked Put error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Put never unblocked after Get freed a slot")
	}
}

func TestBoundedQueue_BlockStrategyCtxCancel(t *testing.T) {
	q := New[int](Config[int]{Capacity: 1, Overflow: Block})
	ctx := context.Background()
	_ = q.Put(ctx, 1)

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()

	if err := q.Put(cancelCtx, 2); err == nil {
		t.Error("Put with cancelled context should return an error")
	}
}

func TestBoundedQueue_GetBlocksUntilPut(t *testing.T) {
	q := New[int](Config[int]{Capacity: 10})
	ctx := context.Background()

	resultCh := make(chan int, 1)
	go func() {
		item, ok := q.Get(ctx)
		if ok {
			resultCh <- item
		}
	}()

	time.Sleep(20 * time.Millisecond)
	_ = q.Put(ctx, 42)

	select {
	case item := <-resultCh:
		if item != 42 {
			t.Errorf("Get() = %d, want 42", item)
		}
	case <-time.After(time.Second):
		t.Fatal("Get() never returned after Put")
	}
}

func TestBoundedQueue_StopWakesBlockedGetters(t *testing.T) {
	q := New[int](Config[int]{Capacity: 10})
	ctx := context.Background()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Get(ctx)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Stop()

	select {
	case ok := <-done:
		if ok {
			t.Error("Get() ok = true after Stop with no items, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("Stop() did not wake blocked Get()")
	}
}

func TestBoundedQueue_StopDrainsRemainingBeforeFalse(t *testing.T) {
	q := New[int](Config[int]{Capacity: 10})
	ctx := context.Background()
	_ = q.Put(ctx, 1)
	_ = q.Put(ctx, 2)

	q.Stop()

	item, ok := q.Get(ctx)
	if !ok || item != 1 {
		t.Fatalf("Get() = (%d, %v), want (1, true)", item, ok)
	}
	item, ok = q.Get(ctx)
	if !ok || item != 2 {
		t.Fatalf("Get() = (%d, %v), want (2, true)", item, ok)
	}
	_, ok = q.Get(ctx)
	if ok {
		t.Error("Get() after drain should return ok=false")
	}
}

func TestBoundedQueue_PutAfterStop(t *testing.T) {
	q := New[int](Config[int]{Capacity: 10})
	q.Stop()

	if err := q.Put(context.Background(), 1); err != ErrShuttingDown {
		t.Errorf("Put after Stop error = %v, want ErrShuttingDown", err)
	}
}

func TestBoundedQueue_LenAndCap(t *testing.T) {
	q := New[int](Config[int]{Capacity: 5})
	ctx := context.Background()
	if q.Cap() != 5 {
		t.Errorf("Cap() = %d, want 5", q.Cap())
	}
	_ = q.Put(ctx, 1)
	_ = q.Put(ctx, 2)
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
}

// TestBoundedQueue_WatermarkSequence mirrors the spec's literal watermark
// scenario: capacity=100, high_wm=80, low_wm=40. Filling to 85 should emit
// [soft, hard]; draining to 35 should then append [ok].
func TestBoundedQueue_WatermarkSequence(t *testing.T) {
	var mu sync.Mutex
	var levels []feedback.Level
	bus := feedback.NewBus(nil)
	bus.Subscribe(func(ctx context.Context, e feedback.Event) {
		mu.Lock()
		levels = append(levels, e.Level)
		mu.Unlock()
	})

	q := New[int](Config[int]{
		Capacity:      100,
		HighWatermark: 80,
		LowWatermark:  40,
		CoordID:       "primary",
		Bus:           bus,
	})
	ctx := context.Background()

	for i := 0; i < 85; i++ {
		if err := q.Put(ctx, i); err != nil {
			t.Fatalf("Put(%d) error = %v", i, err)
		}
	}

	mu.Lock()
	got := append([]feedback.Level(nil), levels...)
	mu.Unlock()
	if len(got) != 2 || got[0] != feedback.Soft || got[1] != feedback.Hard {
		t.Fatalf("after fill to 85, levels = %v, want [soft hard]", got)
	}

	for i := 0; i < 50; i++ {
		if _, ok := q.Get(ctx); !ok {
			t.Fatalf("Get() ok = false during drain")
		}
	}

	mu.Lock()
	got = append([]feedback.Level(nil), levels...)
	mu.Unlock()
	if len(got) != 3 || got[2] != feedback.Ok {
		t.Fatalf("after drain to 35, levels = %v, want [soft hard ok]", got)
	}
}

func TestBoundedQueue_HighWatermarkImpliesSoft(t *testing.T) {
	var mu sync.Mutex
	var levels []feedback.Level
	bus := feedback.NewBus(nil)
	bus.Subscribe(func(ctx context.Context, e feedback.Event) {
		mu.Lock()
		levels = append(levels, e.Level)
		mu.Unlock()
	})

	q := New[int](Config[int]{
		Capacity:      10,
		HighWatermark: 8,
		LowWatermark:  4,
		Bus:           bus,
	})
	ctx := context.Background()

	// Fill from empty to 8 items in a tight loop. Crossing into soft's
	// window (the 5th item) emits Soft once, and reaching the high watermark
	// (the 8th item) emits Hard. We assert the end state: exactly two
	// events, Soft then Hard.
	for i := 0; i < 8; i++ {
		_ = q.Put(ctx, i)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(levels) != 2 {
		t.Fatalf("levels = %v, want exactly 2 transitions (soft then hard)", levels)
	}
	if levels[0] != feedback.Soft || levels[1] != feedback.Hard {
		t.Fatalf("levels = %v, want [soft hard]", levels)
	}
}

func TestOverflowStrategy_String(t *testing.T) {
	tests := []struct {
		s    OverflowStrategy
		want string
	}{
		{Block, "block"},
		{DropOldest, "drop_oldest"},
		{Error, "error"},
		{OverflowStrategy(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseOverflowStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want OverflowStrategy
	}{
		{"block", Block},
		{"drop_oldest", DropOldest},
		{"error", Error},
		{"", Block},
		{"bogus", Block},
	}
	for _, tt := range tests {
		if got := ParseOverflowStrategy(tt.in); got != tt.want {
			t.Errorf("ParseOverflowStrategy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
