package tuple

import "fmt"

// Tuple is an ordered sequence of one or more Elements representing a
// partial subgraph embedding under construction. Its length is fixed
// across a given update stream.
type Tuple []Element

// KeyIndex returns T[0].KeyIndex, the index into T of the element
// currently chosen as the shuffle key.
func (t Tuple) KeyIndex() uint8 {
	return t[0].KeyIndex
}

// SetKeyIndex rewrites T[0].KeyIndex in place. Used by the shuffle-on-all-
// keys step to re-key a tuple before each distinct-vertex copy is routed
// to its partition.
func (t Tuple) SetKeyIndex(i int) {
	t[0].KeyIndex = uint8(i)
}

// KeyVertex returns the vertex ID the tuple is currently keyed on.
func (t Tuple) KeyVertex() uint32 {
	return t[t.KeyIndex()].VertexID
}

// SizeBytes returns the encoded width of the tuple in bytes.
func (t Tuple) SizeBytes() int {
	return len(t) * Width
}

// Clone returns an independent copy of the tuple's elements, so callers
// can extend or re-key a copy without mutating the input a caller still
// holds (the producer's in-tuple buffer, for instance).
func (t Tuple) Clone() Tuple {
	c := make(Tuple, len(t))
	copy(c, t)
	return c
}

// Extend returns a new tuple equal to t with elem appended, elem's
// HistoryInfo set to history. Used by JoinMining and JoinAllKeys to grow
// a tuple by one element per matching edge.
func (t Tuple) Extend(elem Element, history uint8) Tuple {
	out := make(Tuple, len(t)+1)
	copy(out, t)
	elem.HistoryInfo = history
	out[len(t)] = elem
	return out
}

// Encode serializes the tuple to its on-disk byte form.
func Encode(t Tuple) []byte {
	out := make([]byte, t.SizeBytes())
	for i, e := range t {
		e.Encode(out[i*Width : (i+1)*Width])
	}
	return out
}

// Decode reads exactly width bytes from src as width/Width elements.
// width must be a positive multiple of Width.
func Decode(src []byte, width int) (Tuple, error) {
	if width <= 0 || width%Width != 0 {
		return nil, fmt.Errorf("tuple: width %d is not a positive multiple of %d", width, Width)
	}
	if len(src) < width {
		return nil, fmt.Errorf("tuple: decode needs %d bytes, got %d", width, len(src))
	}
	n := width / Width
	t := make(Tuple, n)
	for i := 0; i < n; i++ {
		t[i] = DecodeElement(src[i*Width : (i+1)*Width])
	}
	return t, nil
}

// Validate checks the tuple's structural invariants: the key index must
// address a real element, and every element after the first must
// reference an earlier element as its connection point.
func (t Tuple) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("tuple: empty tuple")
	}
	if int(t[0].KeyIndex) >= len(t) {
		return fmt.Errorf("tuple: key_index %d out of range for tuple of length %d", t[0].KeyIndex, len(t))
	}
	for i := 1; i < len(t); i++ {
		if int(t[i].HistoryInfo) >= i {
			return fmt.Errorf("tuple: element %d has history_info %d, want < %d", i, t[i].HistoryInfo, i)
		}
	}
	return nil
}
