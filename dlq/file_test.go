package dlq

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

type testItem struct {
	Symbol string `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestFileDLQ_SaveAndReplayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dlq.jsonl")
	d, err := Open[testItem](path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	items := []testItem{{Symbol: "AAPL", Price: 190.5}}
	meta := map[string]string{"worker_id": "w-1", "attempts": "3"}

	if err := d.Save(ctx, items, "connection timeout", "retry_exhausted", meta); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	records, err := d.Replay(ctx, 10)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	rec := records[0]
	if rec.Error != "connection timeout" {
		t.Errorf("Error = %q, want %q", rec.Error, "connection timeout")
	}
	if rec.ErrorKind != "retry_exhausted" {
		t.Errorf("ErrorKind = %q, want %q", rec.ErrorKind, "retry_exhausted")
	}
	if len(rec.Items) != 1 || rec.Items[0] != items[0] {
		t.Errorf("Items = %v, want %v", rec.Items, items)
	}
	if rec.Metadata["worker_id"] != "w-1" || rec.Metadata["attempts"] != "3" {
		t.Errorf("Metadata = %v, want %v", rec.Metadata, meta)
	}
}

func TestFileDLQ_ReplayDoesNotDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dlq.jsonl")
	d, err := Open[testItem](path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	_ = d.Save(ctx, []testItem{{Symbol: "AAPL"}}, "err", "kind", nil)

	first, _ := d.Replay(ctx, 10)
	second, _ := d.Replay(ctx, 10)
	if len(first) != len(second) {
		t.Errorf("replay is not repeatable: first=%d second=%d", len(first), len(second))
	}
	if n, _ := d.Len(ctx); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestFileDLQ_ReplayLimitsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dlq.jsonl")
	d, err := Open[testItem](path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = d.Save(ctx, []testItem{{Symbol: "X"}}, "err", "kind", nil)
	}

	records, err := d.Replay(ctx, 2)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
}

func TestFileDLQ_ReopenPreservesCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dlq.jsonl")
	ctx := context.Background()

	d1, err := Open[testItem](path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = d1.Save(ctx, []testItem{{Symbol: "A"}}, "e", "k", nil)
	_ = d1.Save(ctx, []testItem{{Symbol: "B"}}, "e", "k", nil)
	_ = d1.Close()

	d2, err := Open[testItem](path)
	if err != nil {
		t.Fatalf("reopen Open() error = %v", err)
	}
	defer d2.Close()

	if n, _ := d2.Len(ctx); n != 2 {
		t.Errorf("Len() after reopen = %d, want 2", n)
	}
}

func TestFileDLQ_ConcurrentSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dlq.jsonl")
	d, err := Open[testItem](path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Save(ctx, []testItem{{Symbol: "X"}}, "e", "k", nil)
		}()
	}
	wg.Wait()

	records, err := d.Replay(ctx, 0)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(records) != 20 {
		t.Errorf("len(records) = %d, want 20", len(records))
	}
}

func TestFileDLQ_ReplayFromResumesAcrossPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dlq.jsonl")
	d, err := Open[testItem](path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = d.Save(ctx, []testItem{{Symbol: "X"}}, "err", "kind", nil)
	}

	first, next, err := d.ReplayFrom(ctx, 0, 2)
	if err != nil {
		t.Fatalf("ReplayFrom() error = %v", err)
	}
	if len(first) != 2 || next != 2 {
		t.Fatalf("first page = (%d records, next=%d), want (2, 2)", len(first), next)
	}

	second, next, err := d.ReplayFrom(ctx, next, 2)
	if err != nil {
		t.Fatalf("ReplayFrom() error = %v", err)
	}
	if len(second) != 2 || next != 4 {
		t.Fatalf("second page = (%d records, next=%d), want (2, 4)", len(second), next)
	}

	last, next, err := d.ReplayFrom(ctx, next, 2)
	if err != nil {
		t.Fatalf("ReplayFrom() error = %v", err)
	}
	if len(last) != 1 || next != 5 {
		t.Fatalf("last page = (%d records, next=%d), want (1, 5)", len(last), next)
	}
}

func TestNoop(t *testing.T) {
	n := NewNoop[testItem]()
	ctx := context.Background()

	if err := n.Save(ctx, []testItem{{Symbol: "A"}}, "e", "k", nil); err != nil {
		t.Errorf("Save() error = %v, want nil", err)
	}
	records, err := n.Replay(ctx, 10)
	if err != nil || records != nil {
		t.Errorf("Replay() = (%v, %v), want (nil, nil)", records, err)
	}
	if size, err := n.Len(ctx); size != 0 || err != nil {
		t.Errorf("Len() = (%d, %v), want (0, nil)", size, err)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
