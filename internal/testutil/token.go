package testutil

// FixedTokenGenerator generates the same correlation token every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedTokenGenerator produces byte-identical
// journals.
//
// Unlike runtime.SequenceTokenGenerator which returns tokens in order, this
// generator always returns the same token. Useful for scenarios where all
// operations should share one correlation token.
//
// Thread-safety: FixedTokenGenerator is stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a new fixed token generator.
//
// The token is typically set in the scenario YAML:
//
//	token: "test-run-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate() returns "test-run-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed token.
//
// Implements runtime.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
