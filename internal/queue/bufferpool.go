// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
//
// Adapted from code.hybscloud.com/lfq's MPMCIndirect queue (128-bit CAS,
// uintptr payload) to recycle shuffle-buffer backing slices.

package queue

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// BufferPool is a free list of pooled byte-slice handles, indexed by
// uintptr slot index rather than holding the slices directly, so the
// 128-bit CAS carries an index instead of a full slice header.
//
// Every shuffle buffer's swap-on-full path needs a fresh backing slice
// while the old one drains to the writer; recycling those slices here
// avoids allocator churn under concurrent producers.
type BufferPool struct {
	_         pad
	tail      atomix.Uint64
	_         pad
	head      atomix.Uint64
	_         pad
	threshold atomix.Int64
	_         pad
	buffer    []poolSlot
	slices    [][]byte
	capacity  uint64
	size      uint64
	mask      uint64
}

type poolSlot struct {
	entry atomix.Uint128 // lo=cycle, hi=slot index
	_     [64 - 16]byte
}

// NewBufferPool pre-allocates n buffers of the given byte width and seeds
// the free list with their indices.
func NewBufferPool(n, width int) *BufferPool {
	if n < 2 {
		n = 2
	}
	cap64 := uint64(roundToPow2(n))
	size := cap64 * 2

	p := &BufferPool{
		buffer:   make([]poolSlot, size),
		slices:   make([][]byte, n),
		capacity: cap64,
		size:     size,
		mask:     size - 1,
	}
	for i := range p.slices {
		p.slices[i] = make([]byte, 0, width)
	}
	p.threshold.StoreRelaxed(3*int64(cap64) - 1)
	for i := uint64(0); i < size; i++ {
		p.buffer[i].entry.StoreRelaxed(i/cap64, 0)
	}
	for i := 0; i < n; i++ {
		p.release(uintptr(i))
	}
	return p
}

// Acquire returns a recycled backing slice truncated to zero length.
// Returns ok=false if the pool is momentarily exhausted; the caller
// allocates a fresh slice in that case rather than blocking.
func (p *BufferPool) Acquire() (buf []byte, idx uintptr, ok bool) {
	i, found := p.tryDequeue()
	if !found {
		return nil, 0, false
	}
	return p.slices[i][:0], i, true
}

// Release returns a slot index to the free list after its backing slice
// has been flushed to disk.
func (p *BufferPool) Release(idx uintptr, buf []byte) {
	p.slices[idx] = buf
	p.release(idx)
}

func (p *BufferPool) release(idx uintptr) {
	sw := spin.Wait{}
	for {
		tail := p.tail.LoadAcquire()
		head := p.head.LoadAcquire()
		if tail >= head+p.capacity {
			// Pool over-subscribed; drop the slot, letting the GC reclaim
			// it. This only happens if Release is called more times than
			// the pool was sized for, which indicates a caller bug, not a
			// runtime condition to recover from silently.
			return
		}

		myTail := p.tail.AddAcqRel(1) - 1
		slot := &p.buffer[myTail&p.mask]
		expectedCycle := myTail / p.capacity
		slotCycle, valHi := slot.entry.LoadAcquire()

		if slotCycle == expectedCycle {
			if slot.entry.CompareAndSwapAcqRel(expectedCycle, valHi, expectedCycle+1, uint64(idx)) {
				p.threshold.StoreRelaxed(3*int64(p.capacity) - 1)
				return
			}
		}
		sw.Once()
	}
}

func (p *BufferPool) tryDequeue() (uintptr, bool) {
	if p.threshold.LoadRelaxed() < 0 {
		return 0, false
	}

	sw := spin.Wait{}
	for {
		myHead := p.head.AddAcqRel(1) - 1
		slot := &p.buffer[myHead&p.mask]
		expectedCycle := myHead/p.capacity + 1
		slotCycle, valHi := slot.entry.LoadAcquire()

		if slotCycle == expectedCycle {
			nextEnqCycle := (myHead + p.size) / p.capacity
			if slot.entry.CompareAndSwapAcqRel(slotCycle, valHi, nextEnqCycle, 0) {
				return uintptr(valHi), true
			}
		}

		if int64(slotCycle) < int64(expectedCycle) {
			nextEnqCycle := (myHead + p.size) / p.capacity
			slot.entry.CompareAndSwapAcqRel(slotCycle, valHi, nextEnqCycle, 0)

			tail := p.tail.LoadAcquire()
			if tail <= myHead+1 {
				p.catchup(tail, myHead+1)
				p.threshold.AddAcqRel(-1)
				return 0, false
			}
			if p.threshold.AddAcqRel(-1) <= 0 {
				return 0, false
			}
		}
		sw.Once()
	}
}

func (p *BufferPool) catchup(tail, head uint64) {
	for tail < head {
		if p.tail.CompareAndSwapRelaxed(tail, head) {
			break
		}
		tail = p.tail.LoadRelaxed()
		head = p.head.LoadRelaxed()
	}
}
