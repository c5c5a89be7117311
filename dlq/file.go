package dlq

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// FileDLQ persists records as line-delimited JSON in an append-only file.
// Each Save encodes its record to one complete line first and then writes
// that line with a single Write call under a mutex, which also guards the
// record count; opening the file with O_APPEND relies on the OS to make
// each write() call atomic with respect to other writers, and the mutex
// keeps goroutines inside one process from interleaving their lines.
type FileDLQ[T any] struct {
	mu    sync.Mutex
	file  *os.File
	count int64
}

// Open opens (creating if necessary) the DLQ file at path in append mode and
// counts its existing records.
func Open[T any](path string) (*FileDLQ[T], error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("dlq: open %s: %w", path, err)
	}

	count, err := countLines(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("dlq: count existing records in %s: %w", path, err)
	}

	return &FileDLQ[T]{file: f, count: count}, nil
}

func countLines(f *os.File) (int64, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return 0, err
	}
	defer f.Seek(0, 2) //nolint:errcheck // best-effort restore to append position

	var n int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}

// Save appends one record with the current timestamp. It is safe for
// concurrent use.
func (d *FileDLQ[T]) Save(ctx context.Context, items []T, errMsg, errorKind string, metadata map[string]string) error {
	rec := Record[T]{
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Items:     items,
		Error:     errMsg,
		ErrorKind: errorKind,
		Metadata:  metadata,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("dlq: marshal record: %w", err)
	}
	line = append(line, '\n')

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.file.Write(line); err != nil {
		return fmt.Errorf("dlq: write record: %w", err)
	}
	d.count++
	return nil
}

// Replay reads up to maxRecords records from the start of the file. A
// non-positive maxRecords reads all records.
func (d *FileDLQ[T]) Replay(ctx context.Context, maxRecords int) ([]Record[T], error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("dlq: seek to start: %w", err)
	}
	defer d.file.Seek(0, 2) //nolint:errcheck // restore append position

	var records []Record[T]
	scanner := bufio.NewScanner(d.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if maxRecords > 0 && len(records) >= maxRecords {
			break
		}
		var rec Record[T]
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return records, fmt.Errorf("dlq: decode record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// ReplayFrom reads up to maxRecords records starting at line offset, and
// returns the offset to resume from on the next call (offset plus the
// number of records returned). This lets an operator page through a large
// DLQ file across multiple invocations instead of rescanning it from the
// start every time; Replay itself is unaffected and always starts at zero.
func (d *FileDLQ[T]) ReplayFrom(ctx context.Context, offset, maxRecords int) ([]Record[T], int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.file.Seek(0, 0); err != nil {
		return nil, offset, fmt.Errorf("dlq: seek to start: %w", err)
	}
	defer d.file.Seek(0, 2) //nolint:errcheck // restore append position

	var records []Record[T]
	scanner := bufio.NewScanner(d.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		if line < offset {
			line++
			continue
		}
		if maxRecords > 0 && len(records) >= maxRecords {
			break
		}
		var rec Record[T]
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return records, offset + len(records), fmt.Errorf("dlq: decode record %d: %w", line, err)
		}
		records = append(records, rec)
		line++
	}
	return records, offset + len(records), scanner.Err()
}

// Len returns the current record count.
func (d *FileDLQ[T]) Len(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.count), nil
}

// Close closes the underlying file.
func (d *FileDLQ[T]) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}

var _ DLQ[struct{}] = (*FileDLQ[struct{}])(nil)
