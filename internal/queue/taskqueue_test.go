package queue_test

import (
	"sync"
	"testing"

	"github.com/kairstream/rstream/internal/queue"
)

func TestTaskQueueDrainsEveryPush(t *testing.T) {
	q := queue.NewTaskQueue[int](8)
	for i := 0; i < 8; i++ {
		q.Push(i)
	}

	seen := make(map[int]bool)
	for {
		v, ok := q.TryPop()
		if !ok {
			break
		}
		if seen[v] {
			t.Fatalf("partition %d popped twice", v)
		}
		seen[v] = true
	}

	for i := 0; i < 8; i++ {
		if !seen[i] {
			t.Fatalf("partition %d never popped", i)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Fatalf("TryPop on drained queue should return false")
	}
}

func TestTaskQueueConcurrentConsumers(t *testing.T) {
	n := 1024
	if queue.RaceEnabled {
		// The race detector multiplies the cost of every atomic access;
		// keep the run short enough to stay inside the test timeout.
		n = 64
	}
	q := queue.NewTaskQueue[int](n)
	for i := 0; i < n; i++ {
		q.Push(i)
	}

	var mu sync.Mutex
	seen := make(map[int]int, n)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, ok := q.TryPop()
				if !ok {
					return
				}
				mu.Lock()
				seen[v]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("got %d distinct tasks, want %d", len(seen), n)
	}
	for v, c := range seen {
		if c != 1 {
			t.Fatalf("task %d popped %d times, want exactly 1", v, c)
		}
	}
}

func TestBufferPoolRecyclesSlices(t *testing.T) {
	p := queue.NewBufferPool(4, 16)

	buf, idx, ok := p.Acquire()
	if !ok {
		t.Fatalf("Acquire on fresh pool failed")
	}
	if len(buf) != 0 || cap(buf) < 16 {
		t.Fatalf("Acquire returned unexpected slice: len=%d cap=%d", len(buf), cap(buf))
	}
	buf = append(buf, []byte("hello")...)
	p.Release(idx, buf)

	buf2, _, ok := p.Acquire()
	if !ok {
		t.Fatalf("Acquire after Release failed")
	}
	if len(buf2) != 0 {
		t.Fatalf("recycled slice should be truncated to zero length, got len=%d", len(buf2))
	}
}
