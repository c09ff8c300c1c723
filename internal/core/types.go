package core

import "encoding/hex"

// Account is an opaque, address-like account identifier.
// All module state is partitioned by it; there is no cross-account
// visibility anywhere in keel.
type Account string

// Credential is a public-key-equivalent owner identity that a signature
// verifier can check signatures against. The zero credential (empty
// bytes) means "no owner" and must verify as false, never error.
type Credential []byte

// IsZero reports whether the credential is the empty "no owner" value.
func (c Credential) IsZero() bool {
	return len(c) == 0
}

// Hex returns the credential as a lowercase hex string.
func (c Credential) Hex() string {
	return hex.EncodeToString(c)
}

// CredentialFromHex decodes a hex-encoded credential.
func CredentialFromHex(s string) (Credential, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return Credential(b), nil
}

// Payload is opaque action-specific data. It is interpreted only by the
// external action executor; the scheduler stores and forwards it.
type Payload []byte

// Action is a sub-action returned by the action executor for the account
// runtime to apply: a call-shaped (target, value, data) tuple.
type Action struct {
	To    Account `json:"to"`
	Value int64   `json:"value"`
	Data  []byte  `json:"data"`
}

// Digest is a 32-byte message or operation hash.
type Digest [32]byte

// Hex returns the digest as a lowercase hex string.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// DigestFromHex decodes a 64-character hex string into a Digest.
func DigestFromHex(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, err
	}
	if len(b) != len(d) {
		return d, errDigestLength
	}
	copy(d[:], b)
	return d, nil
}

// Operation is a journaled runtime operation record.
// Every state-mutating call into the modules becomes one of these.
type Operation struct {
	ID             string  `json:"id"`    // Content-addressed hash
	Token          string  `json:"token"` // Correlation token (UUIDv7)
	Account        Account `json:"account"`
	Kind           string  `json:"kind"`    // e.g. "scheduler.fire"
	Args           Object  `json:"args"`    // Constrained to Value types
	OpTime         int64   `json:"op_time"` // Caller-supplied time, never wall clock
	Seq            int64   `json:"seq"`     // Logical clock
	SchemaVersion  string  `json:"schema_version"`
	RuntimeVersion string  `json:"runtime_version"`
}

// Outcome is a journaled operation outcome record.
// Each operation has exactly one outcome.
type Outcome struct {
	ID          string `json:"id"` // Content-addressed hash
	OperationID string `json:"operation_id"`
	Case        string `json:"output_case"` // "ok", "invalid_execution", ...
	Result      Object `json:"result"`      // Constrained to Value types
	Seq         int64  `json:"seq"`         // Logical clock
}

// Firing is the observable event emitted when an order fires.
type Firing struct {
	Account Account `json:"account"`
	OrderID int64   `json:"order_id"`
	Seq     int64   `json:"seq"`
}
