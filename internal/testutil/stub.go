package testutil

import (
	"bytes"
	"context"
	"sync"

	"github.com/hallgrim/keel/internal/core"
)

// StubExecutor is a deterministic action-executor test double.
//
// By default it returns no sub-actions and no error. Tests can script the
// returned actions or force an error, and inspect the payloads it was
// called with.
type StubExecutor struct {
	mu      sync.Mutex
	Actions []core.Action // returned from every call
	Err     error         // returned instead, when non-nil
	calls   []core.Payload
}

// Execute implements the scheduler's executor capability.
func (e *StubExecutor) Execute(_ context.Context, _ core.Account, payload core.Payload) ([]core.Action, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, payload)
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Actions, nil
}

// Calls returns the payloads of all Execute calls so far.
func (e *StubExecutor) Calls() []core.Payload {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.Payload, len(e.calls))
	copy(out, e.calls)
	return out
}

// StubVerifier is a signature-verifier test double that accepts a
// signature iff it byte-equals the credential. The zero credential never
// matches, mirroring the "no owner verifies false" contract.
//
// It ignores the digest, which keeps test signatures trivial to construct;
// digest correctness is covered by core.SignedMessageDigest tests and the
// Ed25519 verifier tests.
type StubVerifier struct{}

// Verify implements the registry's verifier capability.
func (StubVerifier) Verify(credential core.Credential, _ core.Digest, signature []byte) bool {
	if credential.IsZero() {
		return false
	}
	return bytes.Equal([]byte(credential), signature)
}

// RecordingVerifier wraps StubVerifier and records every digest it saw.
// Used to assert the signed-message transform is applied exactly once and
// identically across both registry validation entry points.
type RecordingVerifier struct {
	mu      sync.Mutex
	Digests []core.Digest
}

// Verify records the digest, then applies StubVerifier semantics.
func (v *RecordingVerifier) Verify(credential core.Credential, digest core.Digest, signature []byte) bool {
	v.mu.Lock()
	v.Digests = append(v.Digests, digest)
	v.mu.Unlock()
	return StubVerifier{}.Verify(credential, digest, signature)
}
