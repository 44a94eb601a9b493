package kv

// Timestamp is a Lamport clock value: it only ever increases and is used
// purely to order transaction begin/commit events for OCC validation, not
// wall-clock time.
type Timestamp = uint64

// clock is a simple, non-atomic Lamport clock. The kernel is
// single-threaded, so no synchronization is required.
type clock struct {
	counter Timestamp
}

func (c *clock) current() Timestamp {
	return c.counter
}

func (c *clock) next() Timestamp {
	ts := c.counter
	c.counter++
	return ts
}
