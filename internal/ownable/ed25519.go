package ownable

import (
	"crypto/ed25519"

	"github.com/hallgrim/keel/internal/core"
)

// Ed25519Verifier checks signatures against Ed25519 public-key
// credentials. It is the default production verifier; deployments with a
// different credential scheme supply their own Verifier.
//
// Contract compliance: malformed credentials (wrong length, including the
// zero "no owner" credential) and malformed signatures verify as false.
// Nothing here ever fails.
type Ed25519Verifier struct{}

// Verify implements Verifier. The credential is a 32-byte Ed25519 public
// key; the digest is the signed message.
func (Ed25519Verifier) Verify(credential core.Credential, digest core.Digest, signature []byte) bool {
	if len(credential) != ed25519.PublicKeySize {
		return false
	}
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(credential), digest[:], signature)
}
