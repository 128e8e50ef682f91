package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/aleics/gql-dyn/internal/ir"
)

// TraceSnapshot captures the trace of a scenario run for golden comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Fingerprint  string       `json:"fingerprint"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts the snapshot to plain maps, since
// ir.MarshalCanonical only handles primitives, maps and slices.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step": event.Step,
			"type": event.Type,
		}
		if event.Query != "" {
			eventMap["query"] = event.Query
		}
		if len(event.Variables) > 0 {
			eventMap["variables"] = event.Variables
		}
		if event.Data != nil {
			eventMap["data"] = event.Data
		}
		if len(event.Errors) > 0 {
			eventMap["errors"] = stringsToAny(event.Errors)
		}
		if len(event.RecordIDs) > 0 {
			eventMap["record_ids"] = stringsToAny(event.RecordIDs)
		}
		if event.ErrorCode != "" {
			eventMap["error_code"] = event.ErrorCode
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"fingerprint":   s.Fingerprint,
		"trace":         traceList,
	}
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares a result's trace against the golden file for
// scenarioName without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Fingerprint:  result.Fingerprint,
		Trace:        result.Trace,
	}
	normalized, err := normalize(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}
	traceJSON, err := ir.MarshalCanonical(normalized)
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
