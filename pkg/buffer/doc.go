// Package buffer provides a thread-safe bounded ring buffer.
//
// The buffer keeps the most recent items: once full, a write evicts the
// oldest item. This suits sample histories where a running simulation
// produces data indefinitely but only the recent window matters.
//
// # Basic Usage
//
//	ring := buffer.NewRing[float64](1024)
//	ring.Push(0.5)
//
//	recent := ring.Snapshot() // oldest to newest
//	dropped := ring.Dropped() // evicted item count
package buffer
