package sim

import (
	"sync"

	"github.com/google/uuid"
)

// RunTokenGenerator produces identifiers for simulation runs. Results are
// keyed by run token so repeated runs of the same configuration stay
// distinguishable in the results store.
type RunTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator issues time-sortable UUIDv7 run tokens.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens, enabling deterministic test
// output. Panics when the supply is exhausted.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	tok := g.tokens[g.idx]
	g.idx++
	return tok
}
