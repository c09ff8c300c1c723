package manifest

import (
	"fmt"
	"strings"
)

// Validation error codes (E200-E299).
//
// Manifests are a stricter authoring surface than the runtime: the
// scheduler accepts any order parameters, but a manifest that declares a
// negative interval is almost certainly a mistake, so it is rejected
// here before any operation is submitted.
const (
	ErrAccountEmpty      = "E201" // account is required
	ErrOwnerEmpty        = "E202" // initial owner credential is required
	ErrSlotZeroReserved  = "E203" // slot 0 belongs to the initial owner
	ErrDuplicateSlot     = "E204" // duplicate owner slot
	ErrOwnerCredEmpty    = "E205" // empty additional owner credential
	ErrNegativeInterval  = "E206" // order interval must be non-negative
	ErrNegativeMax       = "E207" // max executions must be non-negative
	ErrNegativeStartTime = "E208" // start time must be non-negative
	ErrNegativeSetupTime = "E209" // setup time must be non-negative
)

// ValidationError represents a manifest validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled manifest against authoring rules.
// Returns all errors found (does not fail-fast).
func Validate(m *Manifest) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(string(m.Account)) == "" {
		errs = append(errs, ValidationError{
			Field:   "account",
			Message: "account is required and must be non-empty",
			Code:    ErrAccountEmpty,
		})
	}

	if m.Owner.IsZero() {
		errs = append(errs, ValidationError{
			Field:   "owner",
			Message: "initial owner credential must be non-empty",
			Code:    ErrOwnerEmpty,
		})
	}

	seen := make(map[uint32]bool)
	for i, o := range m.ExtraOwners {
		if o.Slot == 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("owners[%d].slot", i),
				Message: "slot 0 is reserved for the initial owner",
				Code:    ErrSlotZeroReserved,
			})
		}
		if seen[o.Slot] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("owners[%d].slot", i),
				Message: fmt.Sprintf("duplicate slot: %d", o.Slot),
				Code:    ErrDuplicateSlot,
			})
		}
		seen[o.Slot] = true

		if o.Credential.IsZero() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("owners[%d].credential", i),
				Message: "credential must be non-empty",
				Code:    ErrOwnerCredEmpty,
			})
		}
	}

	for i, o := range m.Orders {
		if o.Interval < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("orders[%d].interval", i),
				Message: fmt.Sprintf("interval must be non-negative, got %d", o.Interval),
				Code:    ErrNegativeInterval,
			})
		}
		if o.MaxExecutions < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("orders[%d].max_executions", i),
				Message: fmt.Sprintf("max executions must be non-negative, got %d", o.MaxExecutions),
				Code:    ErrNegativeMax,
			})
		}
		if o.StartTime < 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("orders[%d].start_time", i),
				Message: fmt.Sprintf("start time must be non-negative, got %d", o.StartTime),
				Code:    ErrNegativeStartTime,
			})
		}
	}

	if m.SetupTime < 0 {
		errs = append(errs, ValidationError{
			Field:   "setup_time",
			Message: fmt.Sprintf("setup time must be non-negative, got %d", m.SetupTime),
			Code:    ErrNegativeSetupTime,
		})
	}

	return errs
}
