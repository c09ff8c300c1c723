package core

import "golang.org/x/crypto/sha3"

// signedMessagePrefix is the fixed domain prefix applied to a raw 32-byte
// hash before signature verification, in the manner of EIP-191 personal
// messages. The "32" is the byte length of the hash that follows.
const signedMessagePrefix = "\x19keel signed message:\n32"

// SignedMessageDigest applies the standard signed-message transform to a
// raw operation or message hash:
//
//	Keccak256(prefix || hash)
//
// The transform is applied exactly once, here and nowhere else. Both
// registry validation entry points (operation validation and message
// signature validation) MUST use this function so signatures verify
// identically across contexts - double-applying or skipping the prefix
// causes cross-context replay/rejection bugs.
func SignedMessageDigest(hash Digest) Digest {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signedMessagePrefix))
	h.Write(hash[:])

	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
