package harness

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/hallgrim/keel/internal/core"
	"github.com/hallgrim/keel/internal/ownable"
	"github.com/hallgrim/keel/internal/scheduler"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == "operation" {
				fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.Kind, event.Args)
			}
		}
	}

	return buf.String()
}

// AssertionContext carries the final module state for state assertions.
type AssertionContext struct {
	Scheduler *scheduler.Scheduler
	Owners    *ownable.Registry
}

// EvaluateAssertions runs all assertions and returns the failure
// messages. Does not fail-fast: every assertion is evaluated.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertOrderState:
			err = assertOrderState(actx, assertion)
		case AssertOwnerState:
			err = assertOwnerState(actx, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertTraceContains checks that an operation with the given kind and
// args (subset match) appears in the trace.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == "operation" && event.Kind == assertion.Op {
			if matchArgs(event.Args, assertion.Args) {
				return nil
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("operation %s with args %v", assertion.Op, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that operation kinds appear in the specified
// order. Kinds don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)

	for i, event := range trace {
		if event.Type == "operation" {
			for _, kind := range assertion.Ops {
				if event.Kind == kind && positions[kind] == 0 {
					positions[kind] = i + 1 // 1-indexed for readability
				}
			}
		}
	}

	for _, kind := range assertion.Ops {
		if positions[kind] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all operations present: %v", assertion.Ops),
				Actual:   fmt.Sprintf("missing operation: %s", kind),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Ops); i++ {
		prev := assertion.Ops[i-1]
		curr := assertion.Ops[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("operations in order: %v", assertion.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that the operation kind appears exactly the
// specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == "operation" && event.Kind == assertion.Op {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertOrderState checks the final scheduler state for one order.
// Supported expect fields: exists, interval, max_executions,
// executions_completed, start_time, last_execution_time, payload (hex).
func assertOrderState(actx *AssertionContext, assertion Assertion) error {
	order, found := actx.Scheduler.Get(core.Account(assertion.Account), assertion.OrderID)

	if want, ok := assertion.Expect["exists"]; ok {
		wantExists, isBool := want.(bool)
		if !isBool {
			return fmt.Errorf("order_state: exists must be a bool, got %T", want)
		}
		if wantExists != found {
			return &AssertionError{
				Type:     AssertOrderState,
				Expected: fmt.Sprintf("order %d exists=%v", assertion.OrderID, wantExists),
				Actual:   fmt.Sprintf("exists=%v", found),
			}
		}
		if !wantExists {
			return nil
		}
	}
	if !found {
		return &AssertionError{
			Type:     AssertOrderState,
			Expected: fmt.Sprintf("order %d in account %s", assertion.OrderID, assertion.Account),
			Actual:   "order not found",
		}
	}

	fields := map[string]interface{}{
		"interval":             order.Interval,
		"max_executions":       order.MaxExecutions,
		"executions_completed": order.ExecutionsCompleted,
		"start_time":           order.StartTime,
		"last_execution_time":  order.LastExecutionTime,
		"payload":              hex.EncodeToString(order.Payload),
	}

	return matchStateFields(AssertOrderState, fields, assertion.Expect, "exists")
}

// assertOwnerState checks the final owner registry state for one account.
// Supported expect fields: initialized, owner_count, slots (list),
// owners (map of slot -> hex credential).
func assertOwnerState(actx *AssertionContext, assertion Assertion) error {
	account := core.Account(assertion.Account)

	slots := actx.Owners.Slots(account)
	slotsAny := make([]interface{}, len(slots))
	for i, s := range slots {
		slotsAny[i] = int64(s)
	}

	fields := map[string]interface{}{
		"initialized": actx.Owners.IsInitialized(account),
		"owner_count": int64(actx.Owners.OwnerCount(account)),
		"slots":       slotsAny,
	}

	if want, ok := assertion.Expect["owners"]; ok {
		wantMap, isMap := want.(map[string]interface{})
		if !isMap {
			return fmt.Errorf("owner_state: owners must be a map, got %T", want)
		}
		for slotKey, cred := range wantMap {
			var slot uint32
			if _, err := fmt.Sscanf(slotKey, "%d", &slot); err != nil {
				return fmt.Errorf("owner_state: bad slot key %q: %w", slotKey, err)
			}
			got := actx.Owners.Owner(account, slot).Hex()
			if got != cred {
				return &AssertionError{
					Type:     AssertOwnerState,
					Expected: fmt.Sprintf("slot %d credential %v", slot, cred),
					Actual:   fmt.Sprintf("credential %q", got),
				}
			}
		}
	}

	return matchStateFields(AssertOwnerState, fields, assertion.Expect, "owners")
}

// matchStateFields compares expected state fields against actuals,
// skipping the listed keys (handled by the caller).
func matchStateFields(assertType string, actual map[string]interface{}, expect map[string]interface{}, skip ...string) error {
	skipped := make(map[string]bool, len(skip))
	for _, k := range skip {
		skipped[k] = true
	}

	for key, want := range expect {
		if skipped[key] {
			continue
		}
		got, ok := actual[key]
		if !ok {
			return fmt.Errorf("%s: unknown expect field %q", assertType, key)
		}
		if !looseEqual(got, want) {
			return &AssertionError{
				Type:     assertType,
				Expected: fmt.Sprintf("%s = %v", key, want),
				Actual:   fmt.Sprintf("%s = %v", key, got),
			}
		}
	}
	return nil
}

// matchArgs checks expected args against actual journal args using
// subset semantics: only specified fields are validated.
func matchArgs(actual core.Object, expected map[string]interface{}) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		if !matchValue(got, want) {
			return false
		}
	}
	return true
}

// matchValue compares a journal value against a YAML-parsed expected
// value by converting the expectation into journal types first.
func matchValue(actual core.Value, expected interface{}) bool {
	want, err := convertValue(expected)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(actual, want)
}

// looseEqual compares plain Go values across int widths, as YAML parses
// numbers as int while state fields are int64.
func looseEqual(got, want interface{}) bool {
	if gi, ok := normalizeInt(got); ok {
		if wi, ok := normalizeInt(want); ok {
			return gi == wi
		}
		return false
	}
	if gs, ok := got.([]interface{}); ok {
		ws, ok := want.([]interface{})
		if !ok || len(gs) != len(ws) {
			return false
		}
		for i := range gs {
			if !looseEqual(gs[i], ws[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(got, want)
}

func normalizeInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}
