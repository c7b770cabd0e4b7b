package rstream

import (
	"fmt"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"github.com/kairstream/rstream/internal/ioblock"
	"github.com/kairstream/rstream/internal/queue"
	"github.com/kairstream/rstream/tuple"
)

// producerBody processes one partition's share of a phase, inserting
// zero or more encoded tuples into bm.
type producerBody func(p int, bm *bufferManager) error

// runPhase is the skeleton every primitive shares: build a task queue of
// every partition ID, allocate one shuffle buffer per partition, spawn
// NumExecThreads producers and NumWriteThreads writers, and block until
// both pools fully drain.
func (e *Engine) runPhase(name string, outWidth int, body producerBody) (UpdateStream, error) {
	if outWidth <= 0 || outWidth%tuple.Width != 0 {
		return 0, &ConfigError{Field: "outWidth", Reason: fmt.Sprintf("tuple width %d is not a positive multiple of %d", outWidth, tuple.Width)}
	}
	if e.cfg.IOSize%int64(outWidth) != 0 {
		return 0, &ConfigError{Field: "IOSize", Reason: fmt.Sprintf("%d is not a multiple of output tuple width %d", e.cfg.IOSize, outWidth)}
	}

	out := e.nextUpdateStream(outWidth)
	e.log.Debugw("phase start", "phase", name, "stream", int(out),
		"partitions", e.cfg.NumPartitions,
		"exec_threads", e.cfg.NumExecThreads, "write_threads", e.cfg.NumWriteThreads)
	bm := newBufferManager(e.cfg.NumPartitions, int(e.cfg.IOSize), outWidth)

	outFiles := make([]*ioblock.File, e.cfg.NumPartitions)
	for p := range outFiles {
		f, err := ioblock.OpenAppend(e.streamPath(out, p))
		if err != nil {
			return 0, err
		}
		outFiles[p] = f
	}
	defer func() {
		for _, f := range outFiles {
			f.Close()
		}
	}()

	tq := queue.NewTaskQueue[int](e.cfg.NumPartitions)
	for p := 0; p < e.cfg.NumPartitions; p++ {
		tq.Push(p)
	}

	// numProducers is seeded before either pool starts, so a writer can
	// never observe zero live producers while a producer goroutine has yet
	// to run: zero means every producer has genuinely exited.
	var numProducers atomix.Int64
	numProducers.StoreRelaxed(int64(e.cfg.NumExecThreads))
	var partitionCursor atomix.Uint64
	var partitionNumber atomix.Int64
	partitionNumber.StoreRelaxed(int64(e.cfg.NumPartitions))

	errs := make(chan error, e.cfg.NumExecThreads+e.cfg.NumWriteThreads)

	var producerWg sync.WaitGroup
	for i := 0; i < e.cfg.NumExecThreads; i++ {
		producerWg.Add(1)
		go func() {
			defer producerWg.Done()
			e.runProducer(tq, &numProducers, bm, body, errs)
		}()
	}

	var writerWg sync.WaitGroup
	for i := 0; i < e.cfg.NumWriteThreads; i++ {
		writerWg.Add(1)
		go func() {
			defer writerWg.Done()
			e.runWriter(bm, outFiles, &numProducers, &partitionCursor, &partitionNumber, errs)
		}()
	}

	producerWg.Wait()
	writerWg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return 0, err
		}
	}

	e.log.Debugw("phase complete", "phase", name, "stream", int(out), "out_width_bytes", outWidth)
	return out, nil
}

func (e *Engine) runProducer(tq *queue.TaskQueue[int], numProducers *atomix.Int64, bm *bufferManager, body producerBody, errs chan<- error) {
	defer numProducers.AddAcqRel(-1)

	for {
		p, ok := tq.TryPop()
		if !ok {
			return
		}
		if err := body(p, bm); err != nil {
			errs <- err
			return
		}
		e.log.Debugw("partition processed", "partition", p)
	}
}

// runWriter implements the two-phase writer protocol: concurrent
// opportunistic flush while producers are live, followed by a terminal
// drain that hands each partition ID to exactly one writer.
//
// A writer that hits an I/O error reports it once and keeps draining
// rather than exiting: abandoning the protocol would leave producers
// blocked on full buffers with nobody left to rescue them. The phase
// still fails with the first reported error once both pools join.
func (e *Engine) runWriter(bm *bufferManager, outFiles []*ioblock.File, numProducers *atomix.Int64, partitionCursor *atomix.Uint64, partitionNumber *atomix.Int64, errs chan<- error) {
	var failed bool
	report := func(err error) {
		if !failed {
			failed = true
			errs <- err
		}
	}

	sw := spin.Wait{}
	numPartitions := uint64(bm.count())

	for numProducers.LoadRelaxed() > 0 {
		i := partitionCursor.AddAcqRel(1) - 1
		p := int(i % numPartitions)
		if err := bm.at(p).Flush(outFiles[p]); err != nil {
			report(err)
		}
		sw.Once()
	}

	for {
		v := partitionNumber.AddAcqRel(-1)
		if v < 0 {
			return
		}
		p := int(v)
		if err := bm.at(p).FlushEnd(outFiles[p]); err != nil {
			report(err)
		}
	}
}

// shuffleOnAllKeys deposits t into one destination partition per
// distinct vertex it contains, re-keying each copy to that vertex before
// routing it.
func (e *Engine) shuffleOnAllKeys(t tuple.Tuple, bm *bufferManager) {
	seen := make(map[uint32]bool, len(t))
	for i := 0; i < len(t); i++ {
		v := t[i].VertexID
		if seen[v] {
			continue
		}
		seen[v] = true
		t.SetKeyIndex(i)
		q := e.part.Of(v)
		bm.at(q).Insert(tuple.Encode(t))
	}
}

// loadEdgeHashmap reads partition p's entire edge file into memory and
// indexes it for neighbor lookups keyed by global vertex ID.
func (e *Engine) loadEdgeHashmap(p int) (*tuple.EdgeHashmap, error) {
	f, err := ioblock.OpenRead(e.edgePath(p))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if size > 0 {
		if _, err := f.Read(buf, int(size), 0); err != nil {
			return nil, err
		}
	}
	return tuple.BuildEdgeHashmap(buf, e.vertexStart(p), e.partitionSize(p))
}

// streamTuples pages partition p's input stream file in IOSize windows,
// decoding and validating each width-byte tuple in turn and invoking fn.
func (e *Engine) streamTuples(p int, u UpdateStream, width int, fn func(t tuple.Tuple) error) error {
	if e.cfg.IOSize%int64(width) != 0 {
		return &ConfigError{Field: "IOSize", Reason: fmt.Sprintf("%d is not a multiple of tuple width %d", e.cfg.IOSize, width)}
	}

	f, err := ioblock.OpenRead(e.streamPath(u, p))
	if err != nil {
		return err
	}
	defer f.Close()

	return ioblock.StreamRead(f, e.cfg.IOSize, e.cfg.PageSize, func(buf []byte, offset int64) error {
		if len(buf)%width != 0 {
			return &IntegrityError{Partition: p, Reason: fmt.Sprintf("window of %d bytes is not a multiple of tuple width %d", len(buf), width)}
		}
		for off := 0; off < len(buf); off += width {
			t, err := tuple.Decode(buf[off:off+width], width)
			if err != nil {
				return err
			}
			if err := t.Validate(); err != nil {
				return err
			}
			if err := fn(t); err != nil {
				return err
			}
		}
		return nil
	})
}
