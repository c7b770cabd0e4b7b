package rstream

import (
	"path/filepath"
	"testing"

	"github.com/kairstream/rstream/internal/ioblock"
	"github.com/kairstream/rstream/internal/queue"
)

func TestGlobalShuffleBufferTryInsertReportsFull(t *testing.T) {
	b := newGlobalShuffleBuffer(nil, 8, 4)

	if err := b.TryInsert([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("TryInsert under capacity: %v", err)
	}
	if err := b.TryInsert([]byte{5, 6, 7, 8, 9}); !IsFull(err) {
		t.Fatalf("TryInsert over capacity: got %v, want ErrFull", err)
	}
	// The rejected insert must not have been partially applied.
	if err := b.TryInsert([]byte{5, 6, 7, 8}); err != nil {
		t.Fatalf("TryInsert filling exactly to capacity: %v", err)
	}
}

func TestGlobalShuffleBufferFlushRescuesBlockedInsert(t *testing.T) {
	dir := t.TempDir()
	b := newGlobalShuffleBuffer(nil, 8, 4)

	f, err := ioblock.OpenAppend(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("OpenAppend: %v", err)
	}
	defer f.Close()

	// A single 4-byte insert stays below the flush threshold
	// (capacity-width+1 = 5). A second fills the buffer to capacity, at
	// which point Flush must drain it; otherwise an inserter blocked on
	// the full buffer would never be rescued.
	b.Insert([]byte{1, 2, 3, 4})
	if err := b.Flush(f); err != nil {
		t.Fatalf("Flush below threshold: %v", err)
	}
	if got := len(b.data); got != 4 {
		t.Fatalf("Flush below threshold should be a no-op, buffer has %d bytes, want 4", got)
	}

	b.Insert([]byte{5, 6, 7, 8})
	if err := b.Flush(f); err != nil {
		t.Fatalf("Flush at threshold: %v", err)
	}
	if got := len(b.data); got != 0 {
		t.Fatalf("Flush at threshold should drain, buffer has %d bytes, want 0", got)
	}

	size, err := f.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 8 {
		t.Fatalf("output file has %d bytes, want 8", size)
	}
}

func TestGlobalShuffleBufferFlushRecyclesFromPool(t *testing.T) {
	dir := t.TempDir()
	pool := queue.NewBufferPool(2, 8)
	b := newGlobalShuffleBuffer(pool, 8, 4)

	f, err := ioblock.OpenAppend(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("OpenAppend: %v", err)
	}
	defer f.Close()

	b.Insert([]byte{1, 2, 3, 4})
	if err := b.FlushEnd(f); err != nil {
		t.Fatalf("FlushEnd: %v", err)
	}

	// The buffer's backing slice after a flush must come from the pool
	// (or a fresh allocation if the pool were exhausted), and must be
	// usable for further inserts without growing unbounded.
	b.Insert([]byte{5, 6, 7, 8})
	if err := b.FlushEnd(f); err != nil {
		t.Fatalf("second FlushEnd: %v", err)
	}
}
