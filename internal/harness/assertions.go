package harness

import (
	"fmt"
	"strings"

	"github.com/aleics/gql-dyn/internal/events"
	"github.com/aleics/gql-dyn/internal/ir"
	"github.com/aleics/gql-dyn/internal/schema"
	"github.com/aleics/gql-dyn/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Executed steps for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nSteps:\n")
		for _, event := range e.Trace {
			switch event.Type {
			case StepQuery:
				fmt.Fprintf(&buf, "  [%d] query %s\n", event.Step, strings.Join(strings.Fields(event.Query), " "))
			case StepAppend:
				fmt.Fprintf(&buf, "  [%d] append %v %s\n", event.Step, event.RecordIDs, event.ErrorCode)
			default:
				fmt.Fprintf(&buf, "  [%d] %s\n", event.Step, event.Type)
			}
		}
	}
	return buf.String()
}

// AssertionContext provides the final state assertions inspect.
type AssertionContext struct {
	Schema *schema.Schema
	Store  *store.RecordStore
	Events *events.Recorder
}

// assertRecordCount checks how many records are stored, in total or of
// one kind. A closed store holds no records.
func assertRecordCount(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	records, err := actx.Store.Snapshot()
	if err != nil {
		records = nil
	}
	got := 0
	for _, rec := range records {
		if a.Kind == "" || rec.Kind == ir.KindID(a.Kind) {
			got++
		}
	}
	if got == a.Count {
		return nil
	}
	what := "records"
	if a.Kind != "" {
		what = a.Kind + " records"
	}
	return &AssertionError{
		Type:     AssertRecordCount,
		Expected: fmt.Sprintf("%d %s", a.Count, what),
		Actual:   fmt.Sprintf("%d %s", got, what),
		Trace:    trace,
	}
}

// assertSchemaType checks that a type exists and declares the listed fields.
func assertSchemaType(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	var found *schema.TypeShape
	shape := actx.Schema.Shape()
	for i := range shape.Types {
		if shape.Types[i].Name == a.Name {
			found = &shape.Types[i]
			break
		}
	}
	if found == nil {
		names := make([]string, 0, len(shape.Types))
		for _, t := range shape.Types {
			names = append(names, t.Name)
		}
		return &AssertionError{
			Type:     AssertSchemaType,
			Expected: fmt.Sprintf("type %s", a.Name),
			Actual:   fmt.Sprintf("types %v", names),
			Trace:    trace,
		}
	}

	have := make(map[string]bool, len(found.Fields))
	for _, f := range found.Fields {
		have[f.Name] = true
	}
	var missing []string
	for _, name := range a.Fields {
		if !have[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &AssertionError{
			Type:     AssertSchemaType,
			Expected: fmt.Sprintf("type %s with fields %v", a.Name, a.Fields),
			Actual:   fmt.Sprintf("missing fields %v", missing),
			Trace:    trace,
		}
	}
	return nil
}

// assertEventsPublished checks the number of append notifications.
func assertEventsPublished(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	got := 0
	for _, ev := range actx.Events.Events() {
		if ev.Topic == events.TopicRecordsAppended {
			got++
		}
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertEventsPublished,
			Expected: fmt.Sprintf("%d events", a.Count),
			Actual:   fmt.Sprintf("%d events", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertStepCount checks how many steps ran, in total or of one type.
func assertStepCount(trace []TraceEvent, a Assertion) error {
	got := 0
	for _, event := range trace {
		if a.Step == "" || event.Type == a.Step {
			got++
		}
	}
	if got != a.Count {
		return &AssertionError{
			Type:     AssertStepCount,
			Expected: fmt.Sprintf("%d %s steps", a.Count, a.Step),
			Actual:   fmt.Sprintf("%d %s steps", got, a.Step),
			Trace:    trace,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRecordCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: record_count requires a store", i)
			} else {
				err = assertRecordCount(actx, result.Trace, assertion)
			}
		case AssertSchemaType:
			if actx == nil || actx.Schema == nil {
				err = fmt.Errorf("assertion[%d]: schema_type requires a schema", i)
			} else {
				err = assertSchemaType(actx, result.Trace, assertion)
			}
		case AssertEventsPublished:
			if actx == nil || actx.Events == nil {
				err = fmt.Errorf("assertion[%d]: events_published requires an event recorder", i)
			} else {
				err = assertEventsPublished(actx, result.Trace, assertion)
			}
		case AssertStepCount:
			err = assertStepCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
