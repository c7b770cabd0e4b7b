// Package partition loads the partition table an external preprocessor
// writes to {base}.meta and maps vertex IDs to owning partitions.
//
// Writing the meta file is the preprocessor's job. This package only
// reads it.
package partition

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EdgeType identifies whether edge records carry a weight.
type EdgeType int

const (
	NoWeight EdgeType = 0
	Weighted EdgeType = 1
)

// Interval is a partition's inclusive vertex range [Lo, Hi].
type Interval struct {
	Lo, Hi uint32
}

// Len returns the number of vertices the interval covers.
func (iv Interval) Len() int {
	return int(iv.Hi-iv.Lo) + 1
}

// Meta is the parsed contents of {base}.meta.
type Meta struct {
	EdgeType        EdgeType
	EdgeUnit        int
	NumVertices     int
	VerticesPerPart int
	Intervals       []Interval
}

// NumPartitions returns the partition count implied by the meta file.
func (m *Meta) NumPartitions() int {
	return len(m.Intervals)
}

// LoadMeta parses {base}.meta: a tab-separated text file whose first two
// lines carry edge-record shape and vertex-partitioning parameters, and
// whose remaining lines are one "start<TAB>end" interval per partition.
func LoadMeta(basePath string) (*Meta, error) {
	path := basePath + ".meta"
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("partition: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lines := make([]string, 0, 8)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("partition: read %s: %w", path, err)
	}
	if len(lines) < 3 {
		return nil, fmt.Errorf("partition: %s has %d lines, want at least 3", path, len(lines))
	}

	edgeType, edgeUnit, err := parseTabPair(lines[0])
	if err != nil {
		return nil, fmt.Errorf("partition: %s line 1: %w", path, err)
	}
	if edgeUnit != 8 && edgeUnit != 12 {
		return nil, fmt.Errorf("partition: %s line 1: edge_unit %d, want 8 or 12", path, edgeUnit)
	}

	numVertices, verticesPerPart, err := parseTabPair(lines[1])
	if err != nil {
		return nil, fmt.Errorf("partition: %s line 2: %w", path, err)
	}

	intervals := make([]Interval, 0, len(lines)-2)
	for _, line := range lines[2:] {
		lo, hi, err := parseTabPair(line)
		if err != nil {
			return nil, fmt.Errorf("partition: %s interval line: %w", path, err)
		}
		if hi < lo {
			return nil, fmt.Errorf("partition: %s interval [%d,%d] has hi < lo", path, lo, hi)
		}
		intervals = append(intervals, Interval{Lo: uint32(lo), Hi: uint32(hi)})
	}

	return &Meta{
		EdgeType:        EdgeType(edgeType),
		EdgeUnit:        edgeUnit,
		NumVertices:     numVertices,
		VerticesPerPart: verticesPerPart,
		Intervals:       intervals,
	}, nil
}

func parseTabPair(line string) (int, int, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected 2 tab-separated fields, got %d in %q", len(parts), line)
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("parsing %q: %w", parts[0], err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("parsing %q: %w", parts[1], err)
	}
	return a, b, nil
}
