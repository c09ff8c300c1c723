package harness

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/hallgrim/keel/internal/core"
	"github.com/hallgrim/keel/internal/ownable"
	"github.com/hallgrim/keel/internal/runtime"
	"github.com/hallgrim/keel/internal/scheduler"
	"github.com/hallgrim/keel/internal/store"
	"github.com/hallgrim/keel/internal/testutil"
)

// Harness is the scenario execution engine.
// It drives a real runtime over a fresh in-memory journal; every trace
// event is a record the runtime actually journaled.
type Harness struct {
	store    *store.Store
	rt       *runtime.Runtime
	sched    *scheduler.Scheduler
	owners   *ownable.Registry
	executor *testutil.StubExecutor
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database for isolation.
// A fixed token generator makes journals reproducible.
//
// Execution flow:
//  1. Open fresh in-memory journal, build runtime with test doubles
//  2. Submit every step, then drain the runtime
//  3. Validate each step's expect clause against the journaled outcome
//  4. Build the trace and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	executor := &testutil.StubExecutor{}
	for _, a := range scenario.Actions {
		data, err := hex.DecodeString(a.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid action data hex %q: %w", a.Data, err)
		}
		executor.Actions = append(executor.Actions, core.Action{
			To:    core.Account(a.To),
			Value: a.Value,
			Data:  data,
		})
	}

	sched := scheduler.New(executor)
	owners := ownable.New(testutil.StubVerifier{})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // suppress logs in tests
	rt := runtime.New(st, sched, owners,
		runtime.WithTokenGenerator(testutil.NewFixedTokenGenerator(scenario.Token)),
		runtime.WithLogger(logger),
	)

	h := &Harness{
		store:    st,
		rt:       rt,
		sched:    sched,
		owners:   owners,
		executor: executor,
		logger:   logger,
	}

	ctx := context.Background()
	result := NewResult()

	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	actx := &AssertionContext{
		Scheduler: sched,
		Owners:    owners,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSteps submits every step, drains the runtime, then validates
// expect clauses against the journaled outcomes.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	for i, step := range steps {
		args, err := convertArgs(step.Args)
		if err != nil {
			return fmt.Errorf("step %d: failed to convert args: %w", i, err)
		}

		ok := h.rt.Submit(runtime.Request{
			Account: core.Account(step.Account),
			Kind:    step.Op,
			Args:    args,
			OpTime:  step.Now,
		})
		if !ok {
			return fmt.Errorf("step %d: runtime rejected submission", i)
		}
	}

	if err := h.rt.Drain(ctx); err != nil {
		return fmt.Errorf("drain: %w", err)
	}

	// Operations come back in seq order, which is submission order.
	ops, err := h.store.ReadAllOperations(ctx)
	if err != nil {
		return fmt.Errorf("read operations: %w", err)
	}
	if len(ops) != len(steps) {
		return fmt.Errorf("journaled %d operations for %d steps", len(ops), len(steps))
	}

	for i, op := range ops {
		out, err := h.store.ReadOutcomeForOperation(ctx, op.ID)
		if err != nil {
			return fmt.Errorf("read outcome for step %d: %w", i, err)
		}

		result.AddOperationTrace(op)
		result.AddOutcomeTrace(out)

		if expect := steps[i].Expect; expect != nil {
			h.validateExpect(i, expect, out, result)
		}
	}

	return nil
}

// validateExpect compares a journaled outcome against a step's expect
// clause. Result fields use subset semantics.
func (h *Harness) validateExpect(step int, expect *ExpectClause, out core.Outcome, result *Result) {
	if out.Case != expect.Case {
		result.AddError(fmt.Sprintf(
			"step %d: expected case %q, got %q (result: %v)",
			step, expect.Case, out.Case, out.Result))
		return
	}

	for key, want := range expect.Result {
		got, ok := out.Result[key]
		if !ok {
			result.AddError(fmt.Sprintf(
				"step %d: expected result field %q missing (result: %v)",
				step, key, out.Result))
			continue
		}
		if !matchValue(got, want) {
			result.AddError(fmt.Sprintf(
				"step %d: result field %q: expected %v, got %v",
				step, key, want, got))
		}
	}
}

// convertArgs converts YAML-parsed args to journal value types.
func convertArgs(args map[string]interface{}) (core.Object, error) {
	if args == nil {
		return core.Object{}, nil
	}

	result := make(core.Object)
	for key, val := range args {
		v, err := convertValue(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		result[key] = v
	}
	return result, nil
}

// convertValue converts a YAML-parsed value to a journal value.
// Nulls and floats are rejected early; they are forbidden in canonical
// JSON and would fail later during ID computation.
func convertValue(val interface{}) (core.Value, error) {
	if val == nil {
		return nil, fmt.Errorf("null values are forbidden in journal values")
	}

	switch v := val.(type) {
	case string:
		return core.String(v), nil
	case int:
		return core.Int(int64(v)), nil
	case int64:
		return core.Int(v), nil
	case float64:
		// YAML may parse numbers as float64
		if v == float64(int64(v)) {
			return core.Int(int64(v)), nil
		}
		return nil, fmt.Errorf("floats are forbidden in journal values: %v", v)
	case bool:
		return core.Bool(v), nil
	case []interface{}:
		arr := make(core.Array, len(v))
		for i, elem := range v {
			e, err := convertValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]interface{}:
		obj, err := convertArgs(v)
		if err != nil {
			return nil, err
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
}
