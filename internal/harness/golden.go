package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/hallgrim/keel/internal/core"
)

// TraceSnapshot captures the complete trace of a scenario execution.
// Serialized with canonical JSON so golden comparison is byte-exact.
type TraceSnapshot struct {
	ScenarioName string
	Token        string
	Trace        []TraceEvent
}

// toCanonicalValue converts a TraceSnapshot to journal value types for
// canonical JSON serialization.
func (s *TraceSnapshot) toCanonicalValue() core.Object {
	traceList := make(core.Array, len(s.Trace))
	for i, event := range s.Trace {
		eventObj := core.Object{
			"type": core.String(event.Type),
			"seq":  core.Int(event.Seq),
		}
		if event.Kind != "" {
			eventObj["kind"] = core.String(event.Kind)
		}
		if event.Account != "" {
			eventObj["account"] = core.String(event.Account)
		}
		if event.Args != nil {
			eventObj["args"] = event.Args
			eventObj["op_time"] = core.Int(event.OpTime)
		}
		if event.Case != "" {
			eventObj["case"] = core.String(event.Case)
		}
		if event.Result != nil {
			eventObj["result"] = event.Result
		}
		traceList[i] = eventObj
	}

	snapshot := core.Object{
		"scenario_name": core.String(s.ScenarioName),
		"trace":         traceList,
	}
	if s.Token != "" {
		snapshot["token"] = core.String(s.Token)
	}
	return snapshot
}

// RunWithGolden executes a scenario and compares the trace against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails. A trace mismatch fails
// the test via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		Token:        scenario.Token,
		Trace:        result.Trace,
	}

	traceJSON, err := core.MarshalCanonical(snapshot.toCanonicalValue())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return nil
}

// AssertGolden compares an already-computed result's trace against a
// golden file, without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}

	traceJSON, err := core.MarshalCanonical(snapshot.toCanonicalValue())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
