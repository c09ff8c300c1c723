package ownable

// ValidationResult is the outcome of operation validation.
//
// SigFailed true means the presented selection did not authorize the
// operation. ValidAfter/ValidUntil bound the validity window; both zero
// means unbounded. This registry never produces a partial window - a
// valid signature is valid for the unbounded future - but the fields are
// part of the result shape the account runtime consumes.
type ValidationResult struct {
	SigFailed  bool  `json:"sig_failed"`
	ValidAfter int64 `json:"valid_after"`
	ValidUntil int64 `json:"valid_until"`
}

// resultAccept and resultReject are the two ValidationResult values this
// registry produces.
var (
	resultAccept = ValidationResult{}
	resultReject = ValidationResult{SigFailed: true}
)

// MagicValue is the fixed 4-byte outcome code returned by message
// signature validation.
type MagicValue [4]byte

// Message-signature validation outcome codes, in the manner of EIP-1271:
// the accepted code is the big-endian selector bytes 0x1626ba7e; any
// rejection returns 0xffffffff.
var (
	MagicAccepted = MagicValue{0x16, 0x26, 0xba, 0x7e}
	MagicRejected = MagicValue{0xff, 0xff, 0xff, 0xff}
)
