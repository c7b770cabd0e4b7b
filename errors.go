package rstream

import (
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrFull indicates a shuffle buffer insert could not proceed immediately
// because the buffer is at capacity and awaiting a writer flush.
//
// ErrFull is a control-flow signal, not a failure. It is returned only by
// GlobalShuffleBuffer.TryInsert; the engine's own producers use the
// blocking Insert and never see it. It is an alias for
// [iox.ErrWouldBlock], so callers can treat buffer backpressure exactly
// like a full lock-free queue.
var ErrFull = iox.ErrWouldBlock

// IsFull reports whether err indicates a shuffle buffer insert would block.
func IsFull(err error) bool {
	return iox.IsWouldBlock(err)
}

// ConfigError indicates a configuration or invariant violation detected at
// engine construction or phase entry. It is always fatal, not recoverable.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("rstream: invalid config field %q: %s", e.Field, e.Reason)
}

// IntegrityError indicates a decoded tuple violates an invariant that can
// only be explained by corruption from a prior phase. It is always
// fatal; the engine does not attempt per-partition recovery.
type IntegrityError struct {
	Partition int
	Reason    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("rstream: tuple integrity violation in partition %d: %s", e.Partition, e.Reason)
}
