// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
//
// Adapted from code.hybscloud.com/lfq's MPMC queue for this engine's task
// queue of partition-ID (or partition-ID-pair) descriptors.

package queue

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// TaskQueue is a bounded MPMC queue of homogeneous task descriptors.
//
// The queue is populated fully with every partition ID before a phase's
// producer goroutines start; TryPop returning false is then a terminal
// signal telling the producer to exit its loop.
//
// Based on the FAA-based SCQ (Scalable Circular Queue) algorithm
// (Nikolaev, DISC 2019): Fetch-And-Add blindly increments position
// counters, requiring 2n physical slots for capacity n. This scales
// better under contention than CAS-based alternatives, which matters
// here because every exec-thread producer drains the same queue at
// startup.
type TaskQueue[T any] struct {
	_         pad
	tail      atomix.Uint64
	_         pad
	head      atomix.Uint64
	_         pad
	threshold atomix.Int64
	_         pad
	buffer    []taskSlot[T]
	capacity  uint64
	size      uint64
	mask      uint64
}

type taskSlot[T any] struct {
	cycle atomix.Uint64
	data  T
	_     padShort
}

// NewTaskQueue creates a task queue sized to hold at least capacity
// descriptors. Capacity rounds up to the next power of 2; a capacity
// below 2 is raised to 2. Phases size it to num_partitions, which is
// validated > 0 at engine construction.
func NewTaskQueue[T any](capacity int) *TaskQueue[T] {
	if capacity < 2 {
		capacity = 2
	}

	n := uint64(roundToPow2(capacity))
	size := n * 2

	q := &TaskQueue[T]{
		buffer:   make([]taskSlot[T], size),
		capacity: n,
		size:     size,
		mask:     size - 1,
	}
	q.threshold.StoreRelaxed(3*int64(n) - 1)
	for i := uint64(0); i < size; i++ {
		q.buffer[i].cycle.StoreRelaxed(i / n)
	}
	return q
}

// Push adds a task descriptor to the queue. Push is only called during
// queue setup, before any worker goroutine starts, so it never contends;
// it panics if the queue is already full (a setup bug, not a runtime
// backpressure condition).
func (q *TaskQueue[T]) Push(t T) {
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadAcquire()
		head := q.head.LoadAcquire()
		if tail >= head+q.capacity {
			panic("queue: TaskQueue.Push called on a full queue")
		}

		myTail := q.tail.AddAcqRel(1) - 1
		slot := &q.buffer[myTail&q.mask]
		expectedCycle := myTail / q.capacity

		if slot.cycle.LoadAcquire() == expectedCycle {
			slot.data = t
			slot.cycle.StoreRelease(expectedCycle + 1)
			q.threshold.StoreRelaxed(3*int64(q.capacity) - 1)
			return
		}
		sw.Once()
	}
}

// TryPop removes and returns a task descriptor (non-blocking). Returns
// false iff the queue is empty, the terminal signal producers use to
// exit their dequeue loop.
func (q *TaskQueue[T]) TryPop() (T, bool) {
	var zero T
	if q.threshold.LoadRelaxed() < 0 {
		return zero, false
	}

	sw := spin.Wait{}
	for {
		myHead := q.head.AddAcqRel(1) - 1
		slot := &q.buffer[myHead&q.mask]
		expectedCycle := myHead/q.capacity + 1
		slotCycle := slot.cycle.LoadAcquire()

		if slotCycle == expectedCycle {
			data := slot.data
			slot.data = zero
			nextEnqCycle := (myHead + q.size) / q.capacity
			slot.cycle.StoreRelease(nextEnqCycle)
			return data, true
		}

		if int64(slotCycle) < int64(expectedCycle) {
			nextEnqCycle := (myHead + q.size) / q.capacity
			slot.cycle.CompareAndSwapAcqRel(slotCycle, nextEnqCycle)

			tail := q.tail.LoadAcquire()
			if tail <= myHead+1 {
				q.catchup(tail, myHead+1)
				q.threshold.AddAcqRel(-1)
				return zero, false
			}
			if q.threshold.AddAcqRel(-1) <= 0 {
				return zero, false
			}
		}
		sw.Once()
	}
}

func (q *TaskQueue[T]) catchup(tail, head uint64) {
	for tail < head {
		if q.tail.CompareAndSwapRelaxed(tail, head) {
			break
		}
		tail = q.tail.LoadRelaxed()
		head = q.head.LoadRelaxed()
	}
}

// Cap returns the queue capacity.
func (q *TaskQueue[T]) Cap() int {
	return int(q.capacity)
}
