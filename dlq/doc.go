// Package dlq implements the dead-letter queue: append-only, line-delimited
// JSON persistence of batches a sink worker could not write, with advisory,
// non-destructive replay.
//
// # Core Components
//
//   - [DLQ]: the contract (Save/Replay/Len/Close), generic over item type
//   - [FileDLQ]: append-mode file-backed implementation
//   - [Noop]: discards everything; used when DLQ_PATH is unset
//   - [Record]: one persisted entry (ts, items, error, error_kind, metadata)
//
// # On-Disk Format
//
// One JSON object per line:
//
//	{"ts": 1700000000.123, "items": [...], "error": "...", "error_kind": "...", "metadata": {...}}
//
// # Quick Start
//
//	d, err := dlq.Open[Record](cfg.DLQPath)
//	if err != nil { ... }
//	defer d.Close()
//
//	err = d.Save(ctx, batch, writeErr.Error(), "terminal", map[string]string{
//	    "worker_id": "w-3", "attempts": "1",
//	})
//
//	records, err := d.Replay(ctx, 100)
//
// # Failure Handling
//
// DLQ I/O failures must never block a worker's write path: a worker logs a
// Save error and counts the loss, it does not retry or propagate it to the
// submitter. Losing a DLQ record is preferable to stalling the queue.
//
// # Concurrency
//
// FileDLQ serializes the file access of Save and Replay through a mutex;
// opening the file with O_APPEND lets the OS guarantee atomicity of each
// underlying write, and each record is encoded to a complete line before
// the locked write, so two workers' records never interleave mid-line.
//
// # Integration
//
//   - worker: writes a batch here on retry exhaustion or a terminal classification
//   - health: Len backs a DLQChecker reporting dead-letter growth
//   - coordinator: opens the DLQ (or Noop) from DLQ_PATH at construction
package dlq
