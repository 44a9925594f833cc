package transport

import (
	"math/rand"
	"sync"
)

// messageIDGenerator issues the per-peer message-ID sequence of section
// 4.5: the first value is uniform over 0..0xFFFE, and each later call
// returns (prev mod 0xFFFF)+1, which wraps 0xFFFF back to 1 and otherwise
// just increments. Grounded on the mutex-guarded counters in
// coap/token.go's RandomTokenGenerator and CountingTokenGenerator, carried
// over to 16-bit message IDs with the wraparound rule section 4.5 defines.
type messageIDGenerator struct {
	mu      sync.Mutex
	rand    *rand.Rand
	current uint16
	seeded  bool
}

func newMessageIDGenerator(seed int64) *messageIDGenerator {
	return &messageIDGenerator{rand: rand.New(rand.NewSource(seed))}
}

// Next returns the next message ID in the sequence, seeding it on first
// call.
func (g *messageIDGenerator) Next() uint16 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.seeded {
		g.seeded = true
		g.current = uint16(g.rand.Intn(0xFFFF)) // uniform over 0..0xFFFE
		return g.current
	}
	if g.current == 0xFFFF {
		g.current = 1
	} else {
		g.current++
	}
	return g.current
}

// observe folds a received message ID into the counter so a peer that
// issues higher message IDs than we expect doesn't make our own sequence
// collide with theirs.
func (g *messageIDGenerator) observe(id uint16) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seeded = true
	g.current = id
}
