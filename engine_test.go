package rstream_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kairstream/rstream"
	"github.com/kairstream/rstream/tuple"
)

func putU32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}

func encodeEdgeRecord(src, target uint32, edgeLabel, srcLabel, targetLabel uint8) []byte {
	b := make([]byte, tuple.EdgeUnit)
	putU32(b[0:4], src)
	putU32(b[4:8], target)
	b[8] = edgeLabel
	b[9] = srcLabel
	b[10] = targetLabel
	return b
}

func writeMetaFile(t *testing.T, base string, body string) {
	t.Helper()
	if err := os.WriteFile(base+".meta", []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile .meta: %v", err)
	}
}

func writeEdgeFile(t *testing.T, base string, p int, edges ...[]byte) {
	t.Helper()
	var buf []byte
	for _, e := range edges {
		buf = append(buf, e...)
	}
	path := base + "." + itoa(p)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile edge partition %d: %v", p, err)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func readStreamTuples(t *testing.T, base string, p int, u rstream.UpdateStream, width int) []tuple.Tuple {
	t.Helper()
	path := base + "." + itoa(p) + ".update_stream_" + itoa(int(u))
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile %s: %v", path, err)
	}
	if len(raw)%width != 0 {
		t.Fatalf("%s: size %d is not a multiple of width %d", path, len(raw), width)
	}
	var out []tuple.Tuple
	for off := 0; off < len(raw); off += width {
		tp, err := tuple.Decode(raw[off:off+width], width)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		out = append(out, tp)
	}
	return out
}

func baseConfig(dir string) rstream.Config {
	return rstream.Config{
		BasePath:        filepath.Join(dir, "graph"),
		NumPartitions:   2,
		NumExecThreads:  2,
		NumWriteThreads: 2,
		IOSize:          48, // divisible by every tuple width these tests produce (16 and 24)
		PageSize:        8,
	}
}

// Trivial init: one edge per partition. Both endpoints of edge (0,1) live
// in vertex interval [0,1] and both of edge (2,3) in [2,3], so each edge's
// two all-keys copies land together: in partition 0 and in partition 1
// respectively.
func TestInitShuffleAllKeysTrivial(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "graph")
	writeMetaFile(t, base, "0\t12\n4\t2\n0\t1\n2\t3\n")
	writeEdgeFile(t, base, 0, encodeEdgeRecord(0, 1, 0, 0, 0))
	writeEdgeFile(t, base, 1, encodeEdgeRecord(2, 3, 0, 0, 0))

	e, err := rstream.NewEngine(baseConfig(dir), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	u0, err := e.InitShuffleAllKeys()
	if err != nil {
		t.Fatalf("InitShuffleAllKeys: %v", err)
	}

	p0 := readStreamTuples(t, base, 0, u0, 2*tuple.Width)
	p1 := readStreamTuples(t, base, 1, u0, 2*tuple.Width)

	if len(p0) != 2 {
		t.Fatalf("partition 0: got %d tuples, want 2", len(p0))
	}
	if len(p1) != 2 {
		t.Fatalf("partition 1: got %d tuples, want 2", len(p1))
	}

	keys := map[uint32]bool{}
	for _, tp := range p0 {
		keys[tp.KeyVertex()] = true
	}
	if !keys[0] || !keys[1] {
		t.Fatalf("partition 0 tuples should be keyed on both 0 and 1, got keys %v", keys)
	}
}

// Two-hop extension: 0->1, 1->2 in one partition. init then
// join_mining with filterJoin always false should leave exactly one
// surviving 3-element tuple.
func TestJoinMiningTwoHop(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "graph")
	writeMetaFile(t, base, "0\t12\n3\t3\n0\t2\n")
	writeEdgeFile(t, base, 0,
		encodeEdgeRecord(0, 1, 0, 0, 0),
		encodeEdgeRecord(1, 2, 0, 0, 0),
	)

	cfg := baseConfig(dir)
	cfg.NumPartitions = 1
	e, err := rstream.NewEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	u0, err := e.InitShuffleAllKeys()
	if err != nil {
		t.Fatalf("InitShuffleAllKeys: %v", err)
	}

	u1, err := e.JoinMining(u0, func(tuple.Tuple) bool { return false })
	if err != nil {
		t.Fatalf("JoinMining: %v", err)
	}

	got := readStreamTuples(t, base, 0, u1, 3*tuple.Width)
	var survivors []tuple.Tuple
	for _, tp := range got {
		if len(tp) == 3 {
			survivors = append(survivors, tp)
		}
	}
	if len(survivors) != 1 {
		t.Fatalf("got %d three-element survivors, want 1: %v", len(survivors), survivors)
	}
}

// Shuffle deduplication: a tuple containing vertex v twice must
// produce exactly one output copy per partition for v, not two. Two
// opposing edges (0->1, 1->0) let join_all_keys close a 2-cycle back to
// vertex 0, producing a single surviving extension whose vertex 0
// appears at both its first and last position; shuffling that tuple on
// all keys must emit exactly 2 copies (one per distinct vertex), not 3.
func TestJoinAllKeysShuffleDeduplicatesRepeatedVertex(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "graph")
	writeMetaFile(t, base, "0\t12\n2\t2\n0\t1\n")
	writeEdgeFile(t, base, 0,
		encodeEdgeRecord(0, 1, 0, 0, 0),
		encodeEdgeRecord(1, 0, 0, 0, 0),
	)

	cfg := baseConfig(dir)
	cfg.NumPartitions = 1
	e, err := rstream.NewEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	u0, err := e.InitShuffleAllKeys()
	if err != nil {
		t.Fatalf("InitShuffleAllKeys: %v", err)
	}

	u1, err := e.JoinAllKeys(u0)
	if err != nil {
		t.Fatalf("JoinAllKeys: %v", err)
	}

	got := readStreamTuples(t, base, 0, u1, 3*tuple.Width)
	if len(got) != 2 {
		t.Fatalf("got %d tuples, want 2 (one surviving 3-element extension, shuffled across its 2 distinct vertices)", len(got))
	}
	for _, tp := range got {
		if len(tp) != 3 {
			t.Fatalf("tuple %v has length %d, want 3", tp, len(tp))
		}
	}
}

// Automorphism dedup on the triangle 0-1, 1-2, 0-2 (stored in both
// directions). After init + join_all_keys, the only surviving 3-element
// orderings are canonical: rooted at each tuple's minimum vertex, with
// same-parent children in ascending vertex-ID order. Counts are exact and
// hand-derived: 6 distinct surviving shapes (3 spanning all three
// vertices, 3 degenerate 2-cycles that revisit a vertex), each shuffled
// once per distinct vertex it contains, 15 tuples in all.
func TestTriangleJoinEmitsOnlyCanonicalOrderings(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "graph")
	writeMetaFile(t, base, "0\t12\n3\t3\n0\t2\n")
	writeEdgeFile(t, base, 0,
		encodeEdgeRecord(0, 1, 0, 0, 0),
		encodeEdgeRecord(1, 0, 0, 0, 0),
		encodeEdgeRecord(1, 2, 0, 0, 0),
		encodeEdgeRecord(2, 1, 0, 0, 0),
		encodeEdgeRecord(0, 2, 0, 0, 0),
		encodeEdgeRecord(2, 0, 0, 0, 0),
	)

	cfg := baseConfig(dir)
	cfg.NumPartitions = 1
	e, err := rstream.NewEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	u0, err := e.InitShuffleAllKeys()
	if err != nil {
		t.Fatalf("InitShuffleAllKeys: %v", err)
	}
	u1, err := e.JoinAllKeys(u0)
	if err != nil {
		t.Fatalf("JoinAllKeys: %v", err)
	}

	got := readStreamTuples(t, base, 0, u1, 3*tuple.Width)
	if len(got) != 15 {
		t.Fatalf("got %d tuples, want 15", len(got))
	}

	shapes := map[string]tuple.Tuple{}
	for _, tp := range got {
		min := tp[0].VertexID
		for _, el := range tp[1:] {
			if el.VertexID < min {
				min = el.VertexID
			}
		}
		if tp[0].VertexID != min {
			t.Fatalf("non-canonical tuple survived: root %d but minimum vertex is %d in %v", tp[0].VertexID, min, tp)
		}

		// Identify the shape independently of which key copy this is.
		c := tp.Clone()
		c.SetKeyIndex(0)
		shapes[string(tuple.Encode(c))] = c
	}
	if len(shapes) != 6 {
		t.Fatalf("got %d distinct surviving shapes, want 6", len(shapes))
	}

	spanning := 0
	for _, c := range shapes {
		distinct := map[uint32]bool{}
		for _, el := range c {
			distinct[el.VertexID] = true
		}
		if len(distinct) == 3 {
			spanning++
		}
	}
	if spanning != 3 {
		t.Fatalf("got %d shapes spanning all three vertices, want 3 (star plus the two chains rooted at 0)", spanning)
	}
}

// Property: shuffling an already-shuffled stream exposes no new keys.
// The distinct tuple set per partition is identical between one and two
// consecutive shuffle_all_keys passes.
func TestShuffleAllKeysIdempotentOnDistinctTuples(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "graph")
	writeMetaFile(t, base, "0\t12\n4\t2\n0\t1\n2\t3\n")
	writeEdgeFile(t, base, 0, encodeEdgeRecord(0, 1, 0, 0, 0))
	writeEdgeFile(t, base, 1, encodeEdgeRecord(2, 3, 0, 0, 0))

	e, err := rstream.NewEngine(baseConfig(dir), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	u0, err := e.InitShuffleAllKeys()
	if err != nil {
		t.Fatalf("InitShuffleAllKeys: %v", err)
	}
	u1, err := e.ShuffleAllKeys(u0)
	if err != nil {
		t.Fatalf("first ShuffleAllKeys: %v", err)
	}
	u2, err := e.ShuffleAllKeys(u1)
	if err != nil {
		t.Fatalf("second ShuffleAllKeys: %v", err)
	}

	for p := 0; p < 2; p++ {
		once := distinctEncoded(t, base, p, u1, 2*tuple.Width)
		twice := distinctEncoded(t, base, p, u2, 2*tuple.Width)
		if len(once) != len(twice) {
			t.Fatalf("partition %d: %d distinct tuples after one shuffle, %d after two", p, len(once), len(twice))
		}
		for k := range once {
			if !twice[k] {
				t.Fatalf("partition %d: tuple present after one shuffle but missing after two", p)
			}
		}
	}
}

func distinctEncoded(t *testing.T, base string, p int, u rstream.UpdateStream, width int) map[string]bool {
	t.Helper()
	out := map[string]bool{}
	for _, tp := range readStreamTuples(t, base, p, u, width) {
		out[string(tuple.Encode(tp))] = true
	}
	return out
}

// Property: tuples rejected by filterCollect never appear in the collect
// output, and accepted ones pass through unchanged into their own
// partition's file.
func TestCollectFiltersRejectedTuples(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "graph")
	writeMetaFile(t, base, "0\t12\n4\t2\n0\t1\n2\t3\n")
	writeEdgeFile(t, base, 0, encodeEdgeRecord(0, 1, 0, 0, 0))
	writeEdgeFile(t, base, 1, encodeEdgeRecord(2, 3, 0, 0, 0))

	e, err := rstream.NewEngine(baseConfig(dir), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	u0, err := e.InitShuffleAllKeys()
	if err != nil {
		t.Fatalf("InitShuffleAllKeys: %v", err)
	}
	u1, err := e.Collect(u0, func(tp tuple.Tuple) bool {
		return tp.KeyVertex() == 0
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	p0 := readStreamTuples(t, base, 0, u1, 2*tuple.Width)
	if len(p0) != 1 {
		t.Fatalf("partition 0: got %d tuples, want 1 (tuple keyed on vertex 0 rejected)", len(p0))
	}
	if p0[0].KeyVertex() != 1 {
		t.Fatalf("partition 0 survivor keyed on %d, want 1", p0[0].KeyVertex())
	}

	p1 := readStreamTuples(t, base, 1, u1, 2*tuple.Width)
	if len(p1) != 2 {
		t.Fatalf("partition 1: got %d tuples, want 2 (nothing rejected)", len(p1))
	}
	for _, tp := range p1 {
		if tp.KeyVertex() == 0 {
			t.Fatalf("rejected key vertex 0 appeared in partition 1 output")
		}
	}
}

// Terminal drain: every tuple inserted must appear in the output
// files after phase completion, even with a single writer thread and a
// partition count that leaves buffers partially full.
func TestTerminalDrainWithSingleWriter(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "graph")
	writeMetaFile(t, base, "0\t12\n6\t2\n0\t1\n2\t3\n4\t5\n")
	writeEdgeFile(t, base, 0, encodeEdgeRecord(0, 1, 0, 0, 0))
	writeEdgeFile(t, base, 1, encodeEdgeRecord(2, 3, 0, 0, 0))
	writeEdgeFile(t, base, 2, encodeEdgeRecord(4, 5, 0, 0, 0))

	cfg := baseConfig(dir)
	cfg.NumPartitions = 3
	cfg.NumWriteThreads = 1
	cfg.IOSize = 4096
	cfg.PageSize = 8
	e, err := rstream.NewEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	u0, err := e.InitShuffleAllKeys()
	if err != nil {
		t.Fatalf("InitShuffleAllKeys: %v", err)
	}

	total := 0
	for p := 0; p < 3; p++ {
		total += len(readStreamTuples(t, base, p, u0, 2*tuple.Width))
	}
	if total != 6 {
		t.Fatalf("got %d total tuples across all partitions, want 6 (2 per edge)", total)
	}
}
