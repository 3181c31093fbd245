package vom

import "sync"

/*
Stats reports runtime counters for a Cache: hits and misses against
Lookup, and evictions performed by makeRoom.

Stats itself is a plain value; statsCounters holds the actual mutex and
returns a Stats snapshot under its own lock, independent of Cache's.
*/
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type statsCounters struct {
	mu sync.Mutex
	s  Stats
}

func (c *statsCounters) hit() {
	c.mu.Lock()
	c.s.Hits++
	c.mu.Unlock()
}

func (c *statsCounters) miss() {
	c.mu.Lock()
	c.s.Misses++
	c.mu.Unlock()
}

func (c *statsCounters) eviction() {
	c.mu.Lock()
	c.s.Evictions++
	c.mu.Unlock()
}

func (c *statsCounters) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
