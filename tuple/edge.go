package tuple

import (
	"encoding/binary"
	"fmt"
)

// EdgeUnit is the on-disk width of one LabeledEdge record, in bytes:
// src(4) | target(4) | edge_label(1) | src_label(1) | target_label(1) |
// pad(1).
const EdgeUnit = 12

// LabeledEdge is one on-disk edge record. The edge file for partition p
// contains exactly those edges whose Src lies in p's vertex interval.
type LabeledEdge struct {
	Src         uint32
	Target      uint32
	EdgeLabel   uint8
	SrcLabel    uint8
	TargetLabel uint8
}

// DecodeEdge reads one 12-byte LabeledEdge from the front of src.
func DecodeEdge(src []byte) LabeledEdge {
	return LabeledEdge{
		Src:         binary.LittleEndian.Uint32(src[0:4]),
		Target:      binary.LittleEndian.Uint32(src[4:8]),
		EdgeLabel:   src[8],
		SrcLabel:    src[9],
		TargetLabel: src[10],
		// src[11] is padding.
	}
}

// EdgeTarget is the payload an edge hashmap stores per adjacency: enough
// to build the extension element without re-reading the edge file.
type EdgeTarget struct {
	Target      uint32
	EdgeLabel   uint8
	TargetLabel uint8
}

// EdgeHashmap is the per-producer, per-partition transient adjacency
// index: an array indexed by src-vertexStart whose entries are the
// targets reachable from that src.
type EdgeHashmap struct {
	vertexStart uint32
	adjacency   [][]EdgeTarget
}

// BuildEdgeHashmap parses a fully-loaded edge file and indexes each edge
// under src-vertexStart. nVertices is the size of the partition's vertex
// interval (hi-lo+1); it sizes the heap-allocated adjacency slice up
// front, one slot per vertex in the interval.
func BuildEdgeHashmap(edgeBytes []byte, vertexStart uint32, nVertices int) (*EdgeHashmap, error) {
	if nVertices <= 0 {
		return nil, fmt.Errorf("tuple: BuildEdgeHashmap: nVertices must be > 0, got %d", nVertices)
	}
	if len(edgeBytes)%EdgeUnit != 0 {
		return nil, fmt.Errorf("tuple: edge file size %d is not a multiple of %d", len(edgeBytes), EdgeUnit)
	}

	h := &EdgeHashmap{
		vertexStart: vertexStart,
		adjacency:   make([][]EdgeTarget, nVertices),
	}
	for pos := 0; pos < len(edgeBytes); pos += EdgeUnit {
		e := DecodeEdge(edgeBytes[pos : pos+EdgeUnit])
		if e.Src < vertexStart {
			return nil, fmt.Errorf("tuple: edge src %d is below partition vertex start %d", e.Src, vertexStart)
		}
		i := e.Src - vertexStart
		if int(i) >= nVertices {
			return nil, fmt.Errorf("tuple: edge src %d is outside partition interval (start=%d, n=%d)", e.Src, vertexStart, nVertices)
		}
		h.adjacency[i] = append(h.adjacency[i], EdgeTarget{
			Target:      e.Target,
			EdgeLabel:   e.EdgeLabel,
			TargetLabel: e.TargetLabel,
		})
	}
	return h, nil
}

// Neighbors returns the edges whose src is the given vertex, keyed by the
// vertex's global ID (the caller does not need to subtract vertexStart).
func (h *EdgeHashmap) Neighbors(vertexID uint32) []EdgeTarget {
	i := vertexID - h.vertexStart
	if int(i) >= len(h.adjacency) {
		return nil
	}
	return h.adjacency[i]
}
