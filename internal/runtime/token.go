package runtime

import (
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator generates correlation tokens for submitted requests.
// Implemented by UUIDv7Generator (production) and the fixed/sequence
// generators used by tests.
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 correlation tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, making tokens
// sortable by creation time, which helps when eyeballing journals.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceTokenGenerator returns predetermined tokens in order, for
// tests that need distinct but deterministic tokens per request.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceTokenGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewSequenceTokenGenerator creates a generator that returns tokens in
// order:
//
//	gen := NewSequenceTokenGenerator("op-1", "op-2")
//	gen.Generate() // "op-1"
//	gen.Generate() // "op-2"
//	gen.Generate() // panic: all tokens exhausted
func NewSequenceTokenGenerator(tokens ...string) *SequenceTokenGenerator {
	return &SequenceTokenGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics when all tokens are consumed - fail-fast for test
// misconfiguration (more requests submitted than expected).
func (g *SequenceTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("SequenceTokenGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
