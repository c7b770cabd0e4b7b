// Package queue provides the bounded MPMC structures the mining engine
// shares across producers and writers.
//
// Two instances are used per phase:
//
//   - TaskQueue: holds every partition ID for a phase, fully populated
//     before any producer starts. TryPop returning false is a terminal
//     signal for that producer goroutine.
//   - BufferPool: a free list of shuffle-buffer backing-slice handles,
//     recycled between buffer swaps to avoid allocator churn on the
//     swap-on-full path.
//
// Both are adapted from the FAA-based SCQ algorithm (Nikolaev, DISC 2019)
// used throughout code.hybscloud.com/lfq: Fetch-And-Add producer/consumer
// indices over 2n physical slots, with a threshold counter that prevents
// livelock between racing producers and consumers. Only the MPMC and
// MPMCIndirect shapes are kept here; this engine has no single-producer
// or single-consumer access pattern (every producer and every writer
// goroutine is a peer of its kind), so the SPSC/MPSC/SPMC specializations
// and the zero-copy Ptr variant have no caller in this codebase.
package queue
