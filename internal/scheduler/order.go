package scheduler

import "github.com/hallgrim/keel/internal/core"

// Order is a recurring scheduled action record owned by one account.
//
// Only LastExecutionTime and ExecutionsCompleted ever change after
// creation, and only the firing path mutates them.
type Order struct {
	// ID is the per-account sequential identifier, allocated from 1.
	// Never reused within a session, even after removal.
	ID int64 `json:"id"`

	// Interval is the minimum duration between consecutive firings
	// (non-negative, caller time units).
	Interval int64 `json:"interval"`

	// MaxExecutions is the total number of times this order may ever fire.
	MaxExecutions int64 `json:"max_executions"`

	// ExecutionsCompleted counts firings so far. Starts at 0, monotonically
	// increasing, never exceeds MaxExecutions.
	ExecutionsCompleted int64 `json:"executions_completed"`

	// StartTime is the earliest allowed time of first firing.
	StartTime int64 `json:"start_time"`

	// LastExecutionTime is the time of the most recent firing.
	// 0 is the "never fired" sentinel.
	LastExecutionTime int64 `json:"last_execution_time"`

	// Payload is opaque action data forwarded to the executor.
	Payload core.Payload `json:"payload"`
}

// State names for the per-order lifecycle.
const (
	StatePending   = "pending"   // start time not reached
	StateArmed     = "armed"     // may fire, subject to the lateness rule
	StateExhausted = "exhausted" // terminal: executions completed == max
)

// State classifies the order at a given time. Informational only; the
// firing path uses eligibleReason directly.
func (o *Order) State(now int64) string {
	if o.ExecutionsCompleted >= o.MaxExecutions {
		return StateExhausted
	}
	if now < o.StartTime {
		return StatePending
	}
	return StateArmed
}

// eligibleReason returns the empty Reason when the order may fire at now,
// otherwise the first blocking reason.
//
// An order is eligible iff ALL hold:
//  1. now >= StartTime (the order window has opened)
//  2. ExecutionsCompleted < MaxExecutions (not exhausted)
//  3. NOT (LastExecutionTime+Interval < now AND LastExecutionTime > StartTime)
//
// Rule 3 is deliberately asymmetric: it only blocks once the order has
// fired at least once past its own start AND the next-eligible instant has
// already elapsed. A caller that waits too long past the due interval is
// rejected rather than allowed to fire late. There is NO minimum wait
// since the previous firing; the rule bounds lateness, not frequency.
// See TestRefireImmediatelyAfterFirstFire, which pins that gap.
func (o *Order) eligibleReason(now int64) Reason {
	if now < o.StartTime {
		return ReasonNotStarted
	}
	if o.ExecutionsCompleted >= o.MaxExecutions {
		return ReasonExhausted
	}
	if o.LastExecutionTime+o.Interval < now && o.LastExecutionTime > o.StartTime {
		return ReasonExpired
	}
	return ""
}
