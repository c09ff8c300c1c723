package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func TestSignedMessageDigestDeterministic(t *testing.T) {
	var hash Digest
	copy(hash[:], []byte("0123456789abcdef0123456789abcdef"))

	d1 := SignedMessageDigest(hash)
	d2 := SignedMessageDigest(hash)
	assert.Equal(t, d1, d2)
	assert.NotEqual(t, hash, d1, "transform must not be identity")
}

func TestSignedMessageDigestPrefix(t *testing.T) {
	// The transform is exactly Keccak256("\x19keel signed message:\n32" || hash)
	var hash Digest
	hash[0] = 0xde
	hash[31] = 0xad

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("\x19keel signed message:\n32"))
	h.Write(hash[:])
	var want Digest
	copy(want[:], h.Sum(nil))

	assert.Equal(t, want, SignedMessageDigest(hash))
}

func TestSignedMessageDigestNotDoubleApplied(t *testing.T) {
	var hash Digest
	hash[5] = 0x01

	once := SignedMessageDigest(hash)
	twice := SignedMessageDigest(once)
	assert.NotEqual(t, once, twice, "applying twice must change the digest")
}

func TestDigestHexRoundTrip(t *testing.T) {
	var d Digest
	d[0] = 0xff
	d[31] = 0x01

	parsed, err := DigestFromHex(d.Hex())
	require.NoError(t, err)
	assert.Equal(t, d, parsed)

	_, err = DigestFromHex("abcd")
	require.Error(t, err, "short input must be rejected")
}
