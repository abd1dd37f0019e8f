package jrpc

import (
	"strconv"
	"sync/atomic"
)

// Generator defines the interface for generate IDs for the requests. [Counter] implements this interface.
//
// A generator must never return the same value twice for the lifetime of the process, the IDs are only used to
// correlate a response with its request.
type Generator interface {
	Next() uint64 // Generate the next ID.
}

// DefaultCounter is a process-wide [Counter], share it between clients with [WithGenerator] when the IDs must be
// unique across all of them.
var DefaultCounter = new(Counter)

// Counter is a monotonically increasing [Generator], the first value returned by [Counter.Next] is 1.
//
// The zero value is ready to use. Is safe for concurrent use.
type Counter struct {
	seq atomic.Uint64
}

// Next increments the counter and returns the new value. Implements [Generator].
func (c *Counter) Next() uint64 {
	return c.seq.Add(1)
}

// Seed sets the last issued value, the next call to [Counter.Next] will return n+1.
func (c *Counter) Seed(n uint64) {
	c.seq.Store(n)
}

// Reset sets the counter to its initial state, IDs issued before the reset may be issued again, only use it in tests.
func (c *Counter) Reset() {
	c.seq.Store(0)
}

// FormatID returns the wire representation of a generated ID.
func FormatID(seq uint64) string {
	return strconv.FormatUint(seq, 10)
}
