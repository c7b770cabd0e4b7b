//go:build !race

package queue

// RaceEnabled is false when the race detector is not active.
const RaceEnabled = false
