package rstream

import "github.com/kairstream/rstream/internal/queue"

// bufferManager allocates and hands out one GlobalShuffleBuffer per
// output partition for a single phase invocation. All buffers it
// allocates share one BufferPool, sized with enough spare slots that
// every partition's buffer can be mid-swap at once without falling back
// to a fresh allocation.
type bufferManager struct {
	buffers []*GlobalShuffleBuffer
	pool    *queue.BufferPool
}

func newBufferManager(numPartitions, capacity, insertWidth int) *bufferManager {
	pool := queue.NewBufferPool(numPartitions*2, capacity)
	buffers := make([]*GlobalShuffleBuffer, numPartitions)
	for i := range buffers {
		buffers[i] = newGlobalShuffleBuffer(pool, capacity, insertWidth)
	}
	return &bufferManager{buffers: buffers, pool: pool}
}

func (m *bufferManager) at(p int) *GlobalShuffleBuffer {
	return m.buffers[p]
}

func (m *bufferManager) count() int {
	return len(m.buffers)
}
