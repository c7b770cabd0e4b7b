// Package rstream implements an out-of-core graph-mining execution engine.
//
// It enumerates and transforms vertex tuples (candidate subgraph embeddings)
// over a partitioned, on-disk labeled graph whose working sets exceed RAM.
// A mining workload is expressed as a sequence of phases that grow and
// shuffle tuples; the engine streams partition files from disk, joins them
// against in-memory per-partition edge tables, and re-partitions the
// resulting tuples to disk so the next phase can stream them in turn.
//
// # Quick start
//
//	cfg := rstream.Config{
//	    BasePath:       "/data/graph",
//	    NumPartitions:  4,
//	    NumExecThreads: 4,
//	    NumWriteThreads: 1,
//	    IOSize:         4 << 20,
//	    PageSize:       4096,
//	}
//	e, err := rstream.NewEngine(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	u0, err := e.InitShuffleAllKeys()
//	u1, err := e.JoinMining(u0, func(t tuple.Tuple) bool { return false })
//	u2, err := e.Collect(u1, func(t tuple.Tuple) bool { return false })
//
// # Phases
//
// Five phase primitives comprise every mining computation:
// InitShuffleAllKeys, JoinMining, JoinAllKeys, ShuffleAllKeys, and Collect.
// All are blocking: a phase call does not return until its producer and
// writer thread pools have fully drained.
//
// # Scope
//
// The engine consumes partition and edge files produced by an external
// preprocessor (not part of this module) and exposes the phase API above
// to user mining algorithms. Distributed execution, incremental graph
// updates, in-memory-only execution, and exact tuple ordering within an
// output partition are explicitly out of scope.
package rstream
