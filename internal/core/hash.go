package core

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

var errDigestLength = errors.New("digest must be exactly 32 bytes")

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainOperation = "keel/operation/v1"
	DomainOutcome   = "keel/outcome/v1"
	DomainFiring    = "keel/firing/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OperationID computes the content-addressed ID for an operation.
// The ID is stable across restarts and replays given the same inputs.
// Returns an error if args cannot be canonically marshaled.
func OperationID(token string, account Account, kind string, args Object, opTime, seq int64) (string, error) {
	obj := Object{
		"token":   String(token),
		"account": String(account),
		"kind":    String(kind),
		"args":    args,
		"op_time": Int(opTime),
		"seq":     Int(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("OperationID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainOperation, canonical), nil
}

// OutcomeID computes the content-addressed ID for an outcome.
// Links to the operation it resolves via operationID.
func OutcomeID(operationID, outputCase string, result Object, seq int64) (string, error) {
	obj := Object{
		"operation_id": String(operationID),
		"output_case":  String(outputCase),
		"result":       result,
		"seq":          Int(seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("OutcomeID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainOutcome, canonical), nil
}

// FiringKey computes the idempotency hash for a firing event.
// Used in the firings table UNIQUE constraint: a given (account, order,
// seq) triple is journaled at most once.
func FiringKey(f Firing) (string, error) {
	obj := Object{
		"account":  String(f.Account),
		"order_id": Int(f.OrderID),
		"seq":      Int(f.Seq),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("FiringKey: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainFiring, canonical), nil
}

// MustOperationID is like OperationID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOperationID(token string, account Account, kind string, args Object, opTime, seq int64) string {
	id, err := OperationID(token, account, kind, args, opTime, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// MustOutcomeID is like OutcomeID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOutcomeID(operationID, outputCase string, result Object, seq int64) string {
	id, err := OutcomeID(operationID, outputCase, result, seq)
	if err != nil {
		panic(err)
	}
	return id
}
