// Package snapshot implements the single-writer/multi-reader "latest frame"
// cell the metrics surface serves at GET /latest_frame.
package snapshot

import "sync/atomic"

// Cell holds the most recently produced PNG-encoded frame. It is safe for
// one writer and any number of concurrent readers: writes swap in a new
// byte slice atomically, and Get never blocks on a writer nor returns a
// slice a future write could mutate in place, since frames are always
// replaced wholesale, never edited.
type Cell struct {
	frame atomic.Pointer[[]byte]
}

// New returns an empty Cell. Get returns (nil, false) until the first Set.
func New() *Cell {
	return &Cell{}
}

// Set replaces the held frame. frame must not be mutated by the caller
// afterwards.
func (c *Cell) Set(frame []byte) {
	c.frame.Store(&frame)
}

// Get returns the most recently set frame, or (nil, false) if none has
// been produced yet.
func (c *Cell) Get() ([]byte, bool) {
	p := c.frame.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}
