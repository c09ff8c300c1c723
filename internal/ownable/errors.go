package ownable

import (
	"errors"
	"fmt"

	"github.com/hallgrim/keel/internal/core"
)

// Registry lifecycle sentinels.
var (
	// ErrAlreadyInitialized is returned by Install when the account
	// already has the registry installed.
	ErrAlreadyInitialized = errors.New("owner registry already initialized")

	// ErrNotInitialized is returned by mutating calls on an account that
	// never installed the registry (or uninstalled it).
	ErrNotInitialized = errors.New("owner registry not initialized")
)

// OwnerExistsError reports an addOwner into a currently populated slot.
// The caller must pick a different slot or remove the occupant first.
//
// Note that authorization failures are never errors: a failed signature
// check is an expected, frequent outcome and surfaces as data.
type OwnerExistsError struct {
	Account core.Account
	Slot    uint32
}

// Error implements the error interface.
func (e *OwnerExistsError) Error() string {
	return fmt.Sprintf("owner already exists: account %s slot %d", e.Account, e.Slot)
}

// IsOwnerExists returns true if the error is a populated-slot conflict.
// Uses errors.As to handle wrapped errors.
func IsOwnerExists(err error) bool {
	var oe *OwnerExistsError
	return errors.As(err, &oe)
}
