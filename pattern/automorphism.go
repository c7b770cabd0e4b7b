// Package pattern deduplicates the redundant orderings produced when a
// join primitive extends the same embedding more than once.
//
// A tuple's structure is a tree: element i > 0 is connected from element
// t[i].HistoryInfo. The same tree over the same vertices can be produced
// more than once, each time rooted and ordered differently, once per
// distinct enumeration order the join process happened to explore. Only
// one arrangement per tree survives. Two different spanning trees of the
// same embedding (for a triangle: the star rooted at its minimum vertex
// and a chain from it) are not recognised as the same embedding, and both
// survive.
package pattern

import "github.com/kairstream/rstream/tuple"

// IsAutomorphism reports whether t is a non-canonical re-labeling of a
// tree already emitted in canonical form. Callers discard t when this
// returns true, so that only a single canonical ordering of each distinct
// tree shape survives. Tuples that reach the same embedding through
// different spanning trees are each canonical under the rules below, and
// this function does not reject any of them.
//
// Canonical form fixes two things, purely as a function of the tuple's
// own vertex IDs and history structure:
//
//  1. The root (element 0) must be the minimum vertex ID among all of the
//     tuple's elements: any enumeration rooted at a non-minimal vertex
//     is a redundant relabeling of the one rooted at the minimum.
//  2. At every history-parent, its children must appear in the tuple in
//     ascending vertex-ID order: any enumeration that explored two
//     siblings out of order is redundant with the in-order one.
//
// A tuple failing either check is a re-labeling of an already-canonical
// tuple and is rejected. This is a pure, deterministic function of t
// alone.
func IsAutomorphism(t tuple.Tuple) bool {
	if len(t) <= 1 {
		return false
	}

	minID := t[0].VertexID
	for _, e := range t[1:] {
		if e.VertexID < minID {
			minID = e.VertexID
		}
	}
	if t[0].VertexID != minID {
		return true
	}

	lastChildID := make(map[uint8]uint32, len(t))
	for i := 1; i < len(t); i++ {
		parent := t[i].HistoryInfo
		vid := t[i].VertexID
		if prev, ok := lastChildID[parent]; ok && vid <= prev {
			return true
		}
		lastChildID[parent] = vid
	}

	return false
}
