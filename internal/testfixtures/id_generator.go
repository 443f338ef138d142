package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator hands out predictable identifiers such as "evt-1", "evt-2".
// Generators derived with For share the parent's lock but keep their own
// counter, so events and resources can be numbered independently.
type IDGenerator struct {
	mu       *sync.Mutex
	prefix   string
	counters map[string]uint64
}

// NewIDGenerator returns a generator for prefix, defaulting to "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{
		mu:       &sync.Mutex{},
		prefix:   prefix,
		counters: make(map[string]uint64),
	}
}

// For returns a generator that shares state with g but numbers identifiers
// under its own prefix.
func (g *IDGenerator) For(prefix string) *IDGenerator {
	return &IDGenerator{mu: g.mu, prefix: prefix, counters: g.counters}
}

// Next returns the next identifier.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[g.prefix]++
	return fmt.Sprintf("%s-%d", g.prefix, g.counters[g.prefix])
}

// NextFunc adapts the generator to the func() string hooks taken by services.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Reset restarts numbering for every prefix sharing this generator's state.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	clear(g.counters)
	g.mu.Unlock()
}
