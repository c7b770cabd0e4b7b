package rstream

import (
	"github.com/kairstream/rstream/internal/ioblock"
	"github.com/kairstream/rstream/pattern"
	"github.com/kairstream/rstream/tuple"
)

// InitShuffleAllKeys seeds a mining computation from the raw edge files:
// every labeled edge (s, t) becomes a 2-element tuple [s, t], shuffled on
// all distinct keys.
func (e *Engine) InitShuffleAllKeys() (UpdateStream, error) {
	const outWidth = 2 * tuple.Width

	return e.runPhase("init_shuffle_all_keys", outWidth, func(p int, bm *bufferManager) error {
		f, err := ioblock.OpenRead(e.edgePath(p))
		if err != nil {
			return err
		}
		defer f.Close()

		size, err := f.Size()
		if err != nil {
			return err
		}
		buf := make([]byte, size)
		if size > 0 {
			if _, err := f.Read(buf, int(size), 0); err != nil {
				return err
			}
		}
		if len(buf)%tuple.EdgeUnit != 0 {
			return &IntegrityError{Partition: p, Reason: "edge file size is not a multiple of the edge record width"}
		}

		for off := 0; off < len(buf); off += tuple.EdgeUnit {
			edge := tuple.DecodeEdge(buf[off : off+tuple.EdgeUnit])
			t := tuple.Tuple{
				tuple.NewSeedElement(edge.Src, edge.SrcLabel),
				{VertexID: edge.Target, EdgeLabel: edge.EdgeLabel, VertexLabel: edge.TargetLabel},
			}
			e.shuffleOnAllKeys(t, bm)
		}
		return nil
	})
}

// JoinMining extends every tuple of the input stream by one matching
// edge from its key vertex's neighborhood, applying automorphism
// deduplication and the caller's filterJoin predicate. It does not
// re-key: an extended tuple stays in the partition it was read from.
func (e *Engine) JoinMining(in UpdateStream, filterJoin func(tuple.Tuple) bool) (UpdateStream, error) {
	inWidth, err := e.widthOf(in)
	if err != nil {
		return 0, err
	}
	outWidth := inWidth + tuple.Width

	return e.runPhase("join_mining", outWidth, func(p int, bm *bufferManager) error {
		hashmap, err := e.loadEdgeHashmap(p)
		if err != nil {
			return err
		}
		return e.streamTuples(p, in, inWidth, func(t tuple.Tuple) error {
			keyVertex := t.KeyVertex()
			if e.part.Of(keyVertex) != p {
				return &IntegrityError{Partition: p, Reason: "key vertex does not belong to the current partition"}
			}
			k := t.KeyIndex()
			for _, nb := range hashmap.Neighbors(keyVertex) {
				ext := t.Extend(tuple.Element{VertexID: nb.Target, EdgeLabel: nb.EdgeLabel, VertexLabel: nb.TargetLabel}, k)
				if pattern.IsAutomorphism(ext) {
					continue
				}
				if filterJoin(ext) {
					continue
				}
				bm.at(p).Insert(tuple.Encode(ext))
			}
			return nil
		})
	})
}

// JoinAllKeys extends every tuple by one matching edge, same as
// JoinMining, but shuffles each surviving extension on all keys instead
// of writing it back to a single partition. No filterJoin is applied.
func (e *Engine) JoinAllKeys(in UpdateStream) (UpdateStream, error) {
	inWidth, err := e.widthOf(in)
	if err != nil {
		return 0, err
	}
	outWidth := inWidth + tuple.Width

	return e.runPhase("join_all_keys", outWidth, func(p int, bm *bufferManager) error {
		hashmap, err := e.loadEdgeHashmap(p)
		if err != nil {
			return err
		}
		return e.streamTuples(p, in, inWidth, func(t tuple.Tuple) error {
			keyVertex := t.KeyVertex()
			k := t.KeyIndex()
			for _, nb := range hashmap.Neighbors(keyVertex) {
				ext := t.Extend(tuple.Element{VertexID: nb.Target, EdgeLabel: nb.EdgeLabel, VertexLabel: nb.TargetLabel}, k)
				if pattern.IsAutomorphism(ext) {
					continue
				}
				e.shuffleOnAllKeys(ext, bm)
			}
			return nil
		})
	})
}

// ShuffleAllKeys re-emits every input tuple under every distinct key its
// vertices cover, exposing it for a subsequent join. Tuple width is
// unchanged.
func (e *Engine) ShuffleAllKeys(in UpdateStream) (UpdateStream, error) {
	width, err := e.widthOf(in)
	if err != nil {
		return 0, err
	}

	return e.runPhase("shuffle_all_keys", width, func(p int, bm *bufferManager) error {
		return e.streamTuples(p, in, width, func(t tuple.Tuple) error {
			e.shuffleOnAllKeys(t, bm)
			return nil
		})
	})
}

// Collect writes every input tuple not rejected by filterCollect to the
// output stream unchanged, producing a user algorithm's final result
// stream.
func (e *Engine) Collect(in UpdateStream, filterCollect func(tuple.Tuple) bool) (UpdateStream, error) {
	width, err := e.widthOf(in)
	if err != nil {
		return 0, err
	}

	return e.runPhase("collect", width, func(p int, bm *bufferManager) error {
		return e.streamTuples(p, in, width, func(t tuple.Tuple) error {
			if filterCollect(t) {
				return nil
			}
			bm.at(p).Insert(tuple.Encode(t))
			return nil
		})
	})
}
