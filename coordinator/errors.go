package coordinator

import "errors"

// Sentinel errors for coordinator-level operations. Per-batch write errors
// (retryable, terminal, circuit-open) stay internal to worker; a write
// failure is handled there (retried, routed to the DLQ, or dropped) and
// never escapes as a Submit error.
var (
	// ErrNilSink is returned by New when sink is nil.
	ErrNilSink = errors.New("coordinator: sink is required")

	// ErrInvalidWatermarks is returned by Config.Validate when
	// low_watermark >= high_watermark or high_watermark exceeds capacity.
	ErrInvalidWatermarks = errors.New("coordinator: invalid watermark configuration")

	// ErrInvalidConfig is returned by Config.Validate for any other
	// rejected combination of values.
	ErrInvalidConfig = errors.New("coordinator: invalid configuration")
)
