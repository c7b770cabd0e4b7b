package rstream

import (
	"sync"

	"github.com/kairstream/rstream/internal/ioblock"
	"github.com/kairstream/rstream/internal/queue"
)

// GlobalShuffleBuffer is one output partition's in-memory append-only
// byte region. Many producer goroutines insert into it concurrently;
// writer goroutines flush its contents to the partition's output file.
//
// Insert blocks while the buffer is at capacity; a flush swaps the
// backing slice out from under still-blocked inserters and wakes them.
// The swapped-out slice's backing array is returned to a shared
// BufferPool instead of left for the GC, so a phase with many flush
// cycles does not keep re-allocating IOSize-sized arrays.
type GlobalShuffleBuffer struct {
	mu        sync.Mutex
	cond      *sync.Cond
	data      []byte
	idx       uintptr
	pooled    bool
	capacity  int
	threshold int
	pool      *queue.BufferPool
}

// newGlobalShuffleBuffer creates a buffer of the given capacity for
// insertWidth-byte inserts. The flush threshold is set so that any
// insert the capacity cannot accommodate finds the buffer at-or-above
// threshold: a blocked inserter is always rescued by the next
// opportunistic Flush.
func newGlobalShuffleBuffer(pool *queue.BufferPool, capacity, insertWidth int) *GlobalShuffleBuffer {
	threshold := capacity - insertWidth + 1
	if threshold < 1 {
		threshold = 1
	}
	b := &GlobalShuffleBuffer{
		capacity:  capacity,
		threshold: threshold,
		pool:      pool,
	}
	b.cond = sync.NewCond(&b.mu)
	b.data, b.idx, b.pooled = acquireBuf(pool, capacity)
	return b
}

// acquireBuf hands out a zero-length buffer with at least capacity bytes
// of backing storage, preferring a recycled slice from pool. If the pool
// is momentarily exhausted (or absent), it falls back to a fresh
// allocation rather than blocking.
func acquireBuf(pool *queue.BufferPool, capacity int) ([]byte, uintptr, bool) {
	if pool != nil {
		if buf, idx, ok := pool.Acquire(); ok {
			return buf, idx, true
		}
	}
	return make([]byte, 0, capacity), 0, false
}

// Insert appends bytes to the buffer, blocking the caller while doing so
// would exceed capacity until a writer flushes room free.
func (b *GlobalShuffleBuffer) Insert(bytes []byte) {
	b.mu.Lock()
	for len(b.data)+len(bytes) > b.capacity {
		b.cond.Wait()
	}
	b.data = append(b.data, bytes...)
	b.mu.Unlock()
}

// TryInsert is the non-blocking counterpart to Insert: it appends bytes
// and returns nil, or returns ErrFull immediately without blocking if the
// buffer is at capacity. Mirrors the ErrWouldBlock-returning Enqueue
// shape the task queue's backing algorithm uses, for callers that want to
// apply their own backoff instead of blocking on the buffer's condvar.
func (b *GlobalShuffleBuffer) TryInsert(bytes []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data)+len(bytes) > b.capacity {
		return ErrFull
	}
	b.data = append(b.data, bytes...)
	return nil
}

// Flush drains the buffer to w if it has reached its flush threshold.
// It is a no-op on a buffer below threshold, and idempotent on an empty
// one.
func (b *GlobalShuffleBuffer) Flush(w *ioblock.File) error {
	b.mu.Lock()
	if len(b.data) < b.threshold {
		b.mu.Unlock()
		return nil
	}
	return b.drainLocked(w)
}

// FlushEnd unconditionally drains any remaining bytes to w, regardless
// of threshold. Called exactly once per buffer after every producer has
// terminated.
func (b *GlobalShuffleBuffer) FlushEnd(w *ioblock.File) error {
	b.mu.Lock()
	return b.drainLocked(w)
}

// drainLocked requires b.mu held on entry; it always unlocks before
// returning.
func (b *GlobalShuffleBuffer) drainLocked(w *ioblock.File) error {
	if len(b.data) == 0 {
		b.mu.Unlock()
		return nil
	}
	swapped := b.data
	swappedIdx, swappedPooled := b.idx, b.pooled
	b.data, b.idx, b.pooled = acquireBuf(b.pool, b.capacity)
	b.cond.Broadcast()
	b.mu.Unlock()

	_, err := w.Write(swapped, len(swapped))
	if swappedPooled {
		b.pool.Release(swappedIdx, swapped[:0])
	}
	return err
}
