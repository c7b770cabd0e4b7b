//go:build race

package queue

// RaceEnabled is true when the race detector is active. Tests use it to
// shrink concurrent workloads, since the detector multiplies the cost of
// every atomic access.
const RaceEnabled = true
