package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios submit a sequence of operations to a fresh runtime and
// assert on the resulting trace and final module state.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Token is an optional fixed correlation token for deterministic
	// journals. If empty, defaults to "test-run-default".
	Token string `yaml:"token,omitempty"`

	// Actions scripts the sub-actions the stub executor returns from
	// every fire. Each entry is {to, value, data} with hex data.
	Actions []ActionSpec `yaml:"actions,omitempty"`

	// Steps contains the operations to submit, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count,
	// order_state, owner_state.
	Assertions []Assertion `yaml:"assertions"`
}

// ActionSpec scripts one executor sub-action.
type ActionSpec struct {
	To    string `yaml:"to"`
	Value int64  `yaml:"value"`
	Data  string `yaml:"data,omitempty"` // hex
}

// Step represents one operation submission.
type Step struct {
	// Op is the operation kind (e.g., "scheduler.create").
	Op string `yaml:"op"`

	// Account the operation targets.
	Account string `yaml:"account"`

	// Args contains the operation arguments as a map.
	// Values are converted to journal value types during execution.
	Args map[string]interface{} `yaml:"args"`

	// Now is the caller-supplied operation time.
	Now int64 `yaml:"now"`

	// Expect specifies the expected outcome.
	// If nil, the outcome is not validated (still traced).
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected outcome behavior.
type ExpectClause struct {
	// Case is the expected outcome case (e.g., "ok", "invalid_execution").
	Case string `yaml:"case"`

	// Result contains expected result field values.
	// Subset match - only specified fields are validated.
	// If nil, only the case is validated.
	Result map[string]interface{} `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": operation with kind and args appears in trace
	// - "trace_order": operation kinds appear in order
	// - "trace_count": operation kind appears exactly N times
	// - "order_state": final scheduler state for one order
	// - "owner_state": final owner registry state for one account
	Type string `yaml:"type"`

	// Op is the operation kind (trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Args are expected operation arguments (trace_contains).
	// Subset match.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Ops is the expected kind order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Account scopes state assertions.
	Account string `yaml:"account,omitempty"`

	// OrderID selects the order (order_state).
	OrderID int64 `yaml:"order_id,omitempty"`

	// Expect contains expected state field values. Subset match.
	// order_state: interval, max_executions, executions_completed,
	// start_time, last_execution_time, payload (hex), exists (bool).
	// owner_state: initialized (bool), owner_count, slots (list),
	// owners (map of slot -> hex credential).
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertOrderState    = "order_state"
	AssertOwnerState    = "owner_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Op == "" {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if step.Account == "" {
			return fmt.Errorf("steps[%d]: account is required", i)
		}
		if step.Args == nil {
			return fmt.Errorf("steps[%d]: args is required (use empty map if no args)", i)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("steps[%d].expect: case is required", i)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertOrderState:
		if a.Account == "" {
			return fmt.Errorf("assertions[%d]: account is required for order_state", index)
		}
		if a.OrderID <= 0 {
			return fmt.Errorf("assertions[%d]: order_id is required for order_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for order_state", index)
		}
	case AssertOwnerState:
		if a.Account == "" {
			return fmt.Errorf("assertions[%d]: account is required for owner_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for owner_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
