package harness

import "github.com/hallgrim/keel/internal/core"

// TraceEvent is one journal record in trace order.
// Operations and outcomes alternate: every operation is immediately
// followed by its outcome (the runtime allocates their seqs pairwise).
type TraceEvent struct {
	Type    string      `json:"type"` // "operation" or "outcome"
	Kind    string      `json:"kind,omitempty"`
	Account string      `json:"account,omitempty"`
	Args    core.Object `json:"args,omitempty"`
	OpTime  int64       `json:"op_time,omitempty"`
	Case    string      `json:"case,omitempty"`
	Result  core.Object `json:"result,omitempty"`
	Seq     int64       `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success: every expect clause and
	// assertion matched.
	Pass bool `json:"pass"`

	// Trace contains all journaled operations and outcomes in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddOperationTrace adds an operation to the trace.
func (r *Result) AddOperationTrace(op core.Operation) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    "operation",
		Kind:    op.Kind,
		Account: string(op.Account),
		Args:    op.Args,
		OpTime:  op.OpTime,
		Seq:     op.Seq,
	})
}

// AddOutcomeTrace adds an outcome to the trace.
func (r *Result) AddOutcomeTrace(out core.Outcome) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   "outcome",
		Case:   out.Case,
		Result: out.Result,
		Seq:    out.Seq,
	})
}
