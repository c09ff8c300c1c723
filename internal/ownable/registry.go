// Package ownable implements the per-account multi-owner authorization
// registry.
//
// Each account owns a sparse mapping from owner slot to owner credential,
// plus an ownerCount that serves as an initialization flag and an
// installation/removal counter - deliberately NOT a live count of
// populated slots. The registry decides whether a presented (slot,
// signature) pair authorizes a message hash; the actual signature check
// is delegated to an external verifier capability.
//
// Concurrency: like the scheduler, the registry relies on the runtime's
// single-writer execution model and performs no internal locking.
package ownable

import (
	"slices"

	"github.com/hallgrim/keel/internal/core"
)

// Verifier is the external signature-verifier capability. It must be
// side-effect-free and must return false (never fail) for the zero
// credential.
type Verifier interface {
	Verify(credential core.Credential, digest core.Digest, signature []byte) bool
}

// ownerSet holds one account's slots and its installation counter.
type ownerSet struct {
	slots map[uint32]core.Credential

	// ownerCount is incremented by install and addOwner, never
	// decremented by removeOwner, and zeroed only by uninstall. Using it
	// as a cardinality of active owners is a bug; it exists so removing
	// slot 0 mid-teardown cannot flip the account back to uninitialized.
	ownerCount uint32
}

// Registry stores per-account owner sets and answers authorization
// questions against them.
type Registry struct {
	verifier Verifier
	accounts map[core.Account]*ownerSet
}

// New creates a Registry delegating signature checks to the verifier.
func New(verifier Verifier) *Registry {
	return &Registry{
		verifier: verifier,
		accounts: make(map[core.Account]*ownerSet),
	}
}

// Install initializes the registry for an account with exactly one
// initial owner written to slot 0. Fails with ErrAlreadyInitialized if
// the account is already initialized.
func (r *Registry) Install(account core.Account, initialOwner core.Credential) error {
	if r.IsInitialized(account) {
		return ErrAlreadyInitialized
	}

	set, ok := r.accounts[account]
	if !ok {
		set = &ownerSet{slots: make(map[uint32]core.Credential)}
		r.accounts[account] = set
	}
	set.slots[0] = initialOwner
	set.ownerCount = 1
	return nil
}

// Uninstall tears the registry down for an account: clears slots
// 0..ownerCount-1 (absent slots in that range are a per-slot no-op) and
// resets ownerCount to 0.
//
// Because ownerCount is an installation counter rather than a slot bound,
// a slot added at an index >= ownerCount survives uninstall. That is the
// documented teardown shape, reproduced as-is; see the package tests.
func (r *Registry) Uninstall(account core.Account) error {
	set, ok := r.accounts[account]
	if !ok || set.ownerCount == 0 {
		return ErrNotInitialized
	}

	for slot := uint32(0); slot < set.ownerCount; slot++ {
		delete(set.slots, slot)
	}
	set.ownerCount = 0
	return nil
}

// IsInitialized reports whether the account has the registry installed:
// ownerCount > 0.
func (r *Registry) IsInitialized(account core.Account) bool {
	set, ok := r.accounts[account]
	return ok && set.ownerCount > 0
}

// Owner returns the credential at a slot. An absent slot returns the
// zero credential - "no owner", never an error.
func (r *Registry) Owner(account core.Account, slot uint32) core.Credential {
	set, ok := r.accounts[account]
	if !ok {
		return nil
	}
	return set.slots[slot]
}

// OwnerCount returns the account's installation counter. This is an
// upper bound on ever-added owners, not the number of populated slots.
func (r *Registry) OwnerCount(account core.Account) uint32 {
	set, ok := r.accounts[account]
	if !ok {
		return 0
	}
	return set.ownerCount
}

// Slots returns the populated slot indexes for the account in ascending
// order. Inspection only.
func (r *Registry) Slots(account core.Account) []uint32 {
	set, ok := r.accounts[account]
	if !ok {
		return nil
	}
	out := make([]uint32, 0, len(set.slots))
	for slot := range set.slots {
		out = append(out, slot)
	}
	slices.Sort(out)
	return out
}

// AddOwner writes a credential into an empty slot and increments
// ownerCount. Fails with *OwnerExistsError if the slot is currently
// populated. A previously removed (vacated) slot accepts a new owner.
func (r *Registry) AddOwner(account core.Account, slot uint32, credential core.Credential) error {
	set, ok := r.accounts[account]
	if !ok || set.ownerCount == 0 {
		return ErrNotInitialized
	}
	if existing := set.slots[slot]; !existing.IsZero() {
		return &OwnerExistsError{Account: account, Slot: slot}
	}
	set.slots[slot] = credential
	set.ownerCount++
	return nil
}

// RemoveOwner clears the slot unconditionally; clearing an empty slot is
// a no-op. It does NOT decrement ownerCount - removing slot 0 must not
// flip IsInitialized to false while other owners remain installed.
func (r *Registry) RemoveOwner(account core.Account, slot uint32) error {
	set, ok := r.accounts[account]
	if !ok || set.ownerCount == 0 {
		return ErrNotInitialized
	}
	delete(set.slots, slot)
	return nil
}

// Authorize decides whether (slot, signature) authorizes the given raw
// message hash for the account. Pure read-then-delegate: no state is
// mutated, and a failed check is a false return, never an error.
//
// An absent slot still calls the verifier, with the zero credential; the
// verifier contract requires it to return false for that case.
func (r *Registry) Authorize(account core.Account, slot uint32, message core.Digest, signature []byte) bool {
	credential := r.Owner(account, slot)
	digest := core.SignedMessageDigest(message)
	return r.verifier.Verify(credential, digest, signature)
}

// ValidateOperation validates an operation digest against an encoded
// selection. A valid signature yields an unbounded-validity result; any
// failure (malformed selection, absent owner, bad signature) yields a
// signature-failed result. No partial validity window is ever produced.
func (r *Registry) ValidateOperation(account core.Account, operationDigest core.Digest, encodedSelection []byte) ValidationResult {
	slot, signature, ok := DecodeSelection(encodedSelection)
	if !ok {
		return resultReject
	}
	if !r.Authorize(account, slot, operationDigest, signature) {
		return resultReject
	}
	return resultAccept
}

// ValidateMessageSignature validates an arbitrary message digest against
// an encoded selection, returning one of two fixed outcome codes for the
// external caller. The sender is not consulted by the decision - owner
// policy is account-scoped, not sender-scoped - but is part of the call
// shape the account runtime uses.
//
// Shares the decode-and-delegate path (and therefore the signed-message
// digest transform) with ValidateOperation.
func (r *Registry) ValidateMessageSignature(account core.Account, sender core.Account, digest core.Digest, encodedSelection []byte) MagicValue {
	slot, signature, ok := DecodeSelection(encodedSelection)
	if !ok {
		return MagicRejected
	}
	if !r.Authorize(account, slot, digest, signature) {
		return MagicRejected
	}
	return MagicAccepted
}
