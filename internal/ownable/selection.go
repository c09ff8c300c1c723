package ownable

import "encoding/binary"

// selectionSlotLen is the byte length of the owner-slot prefix in an
// encoded selection.
const selectionSlotLen = 4

// DecodeSelection splits an encoded selection into its owner slot and
// signature: a 4-byte big-endian slot index followed by the raw signature
// bytes.
//
// A selection too short to carry a slot is NOT an error - it is an
// authorization failure, reported as ok=false, because malformed caller
// input is an expected outcome of validation, not a malfunction.
func DecodeSelection(encoded []byte) (slot uint32, signature []byte, ok bool) {
	if len(encoded) < selectionSlotLen {
		return 0, nil, false
	}
	slot = binary.BigEndian.Uint32(encoded[:selectionSlotLen])
	return slot, encoded[selectionSlotLen:], true
}

// EncodeSelection builds the wire form DecodeSelection parses. Used by
// callers (and tests) constructing selections.
func EncodeSelection(slot uint32, signature []byte) []byte {
	out := make([]byte, selectionSlotLen+len(signature))
	binary.BigEndian.PutUint32(out, slot)
	copy(out[selectionSlotLen:], signature)
	return out
}
