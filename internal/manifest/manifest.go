// Package manifest compiles CUE account manifests into runtime setup
// plans.
//
// A manifest declares the initial shape of one account: the initial
// owner credential, optional additional owners, and the recurring orders
// to schedule. Compilation uses the CUE SDK's Go API directly (not a CLI
// subprocess) and reports errors with source positions.
package manifest

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/hallgrim/keel/internal/core"
)

// OrderSpec declares one recurring order to create at setup time.
type OrderSpec struct {
	Interval      int64
	MaxExecutions int64
	StartTime     int64
	Payload       core.Payload
}

// OwnerEntry declares one additional owner beyond the initial one.
type OwnerEntry struct {
	Slot       uint32
	Credential core.Credential
}

// Manifest is a compiled account manifest.
type Manifest struct {
	Account     core.Account
	Owner       core.Credential // initial owner, installed at slot 0
	ExtraOwners []OwnerEntry
	Orders      []OrderSpec
	SetupTime   int64 // op_time stamped on every setup operation
}

// CompileError is a manifest compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and compiles a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	return Compile(v)
}

// Compile parses a CUE value into a Manifest.
//
// The value should be the manifest struct itself:
//
//	account: "acct-1"
//	owner:   "aa11"
//	orders: [{interval: 3600, max_executions: 12, start_time: 0, payload: "cafe"}]
func Compile(v cue.Value) (*Manifest, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	m := &Manifest{}

	accountVal := v.LookupPath(cue.ParsePath("account"))
	if !accountVal.Exists() {
		return nil, &CompileError{Field: "account", Message: "account is required", Pos: v.Pos()}
	}
	account, err := accountVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	m.Account = core.Account(account)

	ownerVal := v.LookupPath(cue.ParsePath("owner"))
	if !ownerVal.Exists() {
		return nil, &CompileError{Field: "owner", Message: "owner is required", Pos: v.Pos()}
	}
	m.Owner, err = parseCredential(ownerVal, "owner")
	if err != nil {
		return nil, err
	}

	// Additional owners (optional)
	ownersVal := v.LookupPath(cue.ParsePath("owners"))
	if ownersVal.Exists() {
		m.ExtraOwners, err = parseOwners(ownersVal)
		if err != nil {
			return nil, err
		}
	}

	// Orders (optional, can be empty)
	ordersVal := v.LookupPath(cue.ParsePath("orders"))
	if ordersVal.Exists() {
		m.Orders, err = parseOrders(ordersVal)
		if err != nil {
			return nil, err
		}
	}

	setupVal := v.LookupPath(cue.ParsePath("setup_time"))
	if setupVal.Exists() {
		m.SetupTime, err = setupVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
	}

	return m, nil
}

// parseCredential decodes a hex credential string field.
func parseCredential(v cue.Value, field string) (core.Credential, error) {
	s, err := v.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	cred, err := core.CredentialFromHex(s)
	if err != nil {
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("invalid hex credential: %v", err), Pos: v.Pos()}
	}
	return cred, nil
}

// parseOwners parses the owners list: [{slot: 1, credential: "bb22"}].
func parseOwners(v cue.Value) ([]OwnerEntry, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var owners []OwnerEntry
	for i := 0; iter.Next(); i++ {
		ov := iter.Value()

		slotVal := ov.LookupPath(cue.ParsePath("slot"))
		if !slotVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("owners[%d].slot", i),
				Message: "slot is required",
				Pos:     ov.Pos(),
			}
		}
		slot, err := slotVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if slot < 0 || slot > int64(^uint32(0)) {
			return nil, &CompileError{
				Field:   fmt.Sprintf("owners[%d].slot", i),
				Message: fmt.Sprintf("slot out of range: %d", slot),
				Pos:     slotVal.Pos(),
			}
		}

		credVal := ov.LookupPath(cue.ParsePath("credential"))
		if !credVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("owners[%d].credential", i),
				Message: "credential is required",
				Pos:     ov.Pos(),
			}
		}
		cred, err := parseCredential(credVal, fmt.Sprintf("owners[%d].credential", i))
		if err != nil {
			return nil, err
		}

		owners = append(owners, OwnerEntry{Slot: uint32(slot), Credential: cred})
	}
	return owners, nil
}

// parseOrders parses the orders list.
func parseOrders(v cue.Value) ([]OrderSpec, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var orders []OrderSpec
	for i := 0; iter.Next(); i++ {
		ov := iter.Value()
		spec := OrderSpec{}

		spec.Interval, err = requiredInt(ov, "interval", i)
		if err != nil {
			return nil, err
		}
		spec.MaxExecutions, err = requiredInt(ov, "max_executions", i)
		if err != nil {
			return nil, err
		}
		spec.StartTime, err = requiredInt(ov, "start_time", i)
		if err != nil {
			return nil, err
		}

		payloadVal := ov.LookupPath(cue.ParsePath("payload"))
		if payloadVal.Exists() {
			s, err := payloadVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			cred, err := core.CredentialFromHex(s)
			if err != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("orders[%d].payload", i),
					Message: fmt.Sprintf("invalid hex payload: %v", err),
					Pos:     payloadVal.Pos(),
				}
			}
			spec.Payload = core.Payload(cred)
		}

		orders = append(orders, spec)
	}
	return orders, nil
}

// requiredInt reads a required int64 field from an order entry.
func requiredInt(v cue.Value, field string, idx int) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{
			Field:   fmt.Sprintf("orders[%d].%s", idx, field),
			Message: fmt.Sprintf("%s is required", field),
			Pos:     v.Pos(),
		}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
