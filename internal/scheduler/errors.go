package scheduler

import (
	"errors"
	"fmt"

	"github.com/hallgrim/keel/internal/core"
)

// Reason categorizes why an order is ineligible to fire.
type Reason string

const (
	// ReasonNotFound indicates the order does not exist for the account.
	ReasonNotFound Reason = "NOT_FOUND"

	// ReasonNotStarted indicates now precedes the order's start time.
	ReasonNotStarted Reason = "NOT_STARTED"

	// ReasonExhausted indicates the order already fired maxExecutions times.
	ReasonExhausted Reason = "EXHAUSTED"

	// ReasonExpired indicates the allowed lateness window has passed: the
	// order fired at least once past its start, and more than one interval
	// has elapsed since that firing.
	ReasonExpired Reason = "EXPIRED"
)

// InvalidExecutionError reports an order that is ineligible to fire.
//
// Non-retryable until the eligibility condition changes; callers must
// re-check before retrying. No partial state change accompanies it.
type InvalidExecutionError struct {
	Account core.Account
	OrderID int64
	Now     int64
	Reason  Reason
}

// Error implements the error interface.
func (e *InvalidExecutionError) Error() string {
	return fmt.Sprintf("invalid execution: order %d for account %s at t=%d (%s)",
		e.OrderID, e.Account, e.Now, e.Reason)
}

// IsInvalidExecution returns true if the error is an eligibility rejection.
// Uses errors.As to handle wrapped errors.
func IsInvalidExecution(err error) bool {
	var ie *InvalidExecutionError
	return errors.As(err, &ie)
}

// InvalidExecutionReason extracts the blocking reason from an error.
// Returns ("", false) if the error is not an InvalidExecutionError.
func InvalidExecutionReason(err error) (Reason, bool) {
	var ie *InvalidExecutionError
	if errors.As(err, &ie) {
		return ie.Reason, true
	}
	return "", false
}
