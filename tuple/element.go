// Package tuple implements the fixed-width vertex-tuple wire format that
// flows between mining phases: 8-byte Elements packed back-to-back into
// Tuples, plus the on-disk LabeledEdge record and the per-partition edge
// hashmap built from it.
//
// Layout:
//
//	[ vertex_id:4 ] [ key_index:1 ] [ edge_label:1 ] [ vertex_label:1 ] [ history_info:1 ]
//
// key_index is only meaningful in element 0 of a tuple: it names the index
// of the element currently chosen as the shuffle key. history_info records,
// for every element after the first, the index of the element it was
// connected from at introduction time.
package tuple

import "encoding/binary"

// Width is the fixed on-disk size of one Element, in bytes.
const Width = 8

// Element is one 8-byte fixed-width record within a Tuple.
type Element struct {
	VertexID    uint32
	KeyIndex    uint8 // meaningful only in element 0 of a tuple
	EdgeLabel   uint8 // 0 for seed vertices
	VertexLabel uint8
	HistoryInfo uint8 // meaningful only for i > 0: index of the element this one is connected from
}

// NewSeedElement builds an element for a vertex introduced with no
// connecting edge (edge_label = 0, history_info = 0), as used by
// InitShuffleAllKeys when seeding tuples directly from edge records.
func NewSeedElement(vertexID uint32, vertexLabel uint8) Element {
	return Element{VertexID: vertexID, VertexLabel: vertexLabel}
}

// Encode writes the element's 8-byte wire form into dst, which must have
// length >= Width.
func (e Element) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], e.VertexID)
	dst[4] = e.KeyIndex
	dst[5] = e.EdgeLabel
	dst[6] = e.VertexLabel
	dst[7] = e.HistoryInfo
}

// DecodeElement reads one 8-byte element from the front of src.
func DecodeElement(src []byte) Element {
	return Element{
		VertexID:    binary.LittleEndian.Uint32(src[0:4]),
		KeyIndex:    src[4],
		EdgeLabel:   src[5],
		VertexLabel: src[6],
		HistoryInfo: src[7],
	}
}
