package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: a catalog, seed records, a list
// of steps with expectations, and assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is a catalog file, relative to the scenario file.
	Catalog string `yaml:"catalog,omitempty"`

	// Kinds is an inline catalog: kind name to field name to type.
	// Mutually exclusive with Catalog. Without either the built-in zoo is used.
	Kinds map[string]map[string]string `yaml:"kinds,omitempty"`

	// Interface and ListField override the generated names.
	Interface string `yaml:"interface,omitempty"`
	ListField string `yaml:"list_field,omitempty"`

	// Fixtures is the number of generated records to seed.
	Fixtures int `yaml:"fixtures,omitempty"`

	// Records are seeded after the fixtures. They go through the same
	// validation as an append.
	Records []RecordSpec `yaml:"records,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RecordSpec is a record as written in a scenario.
type RecordSpec struct {
	ID     string         `yaml:"id,omitempty" json:"id,omitempty"`
	Name   string         `yaml:"name" json:"name"`
	Kind   string         `yaml:"kind" json:"kind"`
	Fields map[string]any `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Step is exactly one of a query, an append or a store close.
type Step struct {
	Query     string         `yaml:"query,omitempty"`
	Variables map[string]any `yaml:"variables,omitempty"`

	Append []RecordSpec `yaml:"append,omitempty"`

	Close bool `yaml:"close,omitempty"`

	// Expect is checked against the step outcome. Nil skips the check.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Type returns the step type.
func (s Step) Type() string {
	switch {
	case s.Close:
		return StepClose
	case len(s.Append) > 0:
		return StepAppend
	default:
		return StepQuery
	}
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Data must equal the query result data exactly.
	Data any `yaml:"data,omitempty"`

	// Errors are substrings the query errors must contain, one per error
	// and in order. An empty list with a non-nil Expect means no errors.
	Errors []string `yaml:"errors,omitempty"`

	// Error is the rejection code of an append ("" means it must succeed).
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final state of a run.
type Assertion struct {
	// Type is one of record_count, schema_type, events_published, step_count.
	Type string `yaml:"type"`

	// Kind restricts record_count to one kind.
	Kind string `yaml:"kind,omitempty"`

	// Name is the type checked by schema_type.
	Name string `yaml:"name,omitempty"`

	// Fields lists fields schema_type expects on the type.
	Fields []string `yaml:"fields,omitempty"`

	// Step restricts step_count to one step type.
	Step string `yaml:"step,omitempty"`

	// Count is the expected number (record_count, events_published, step_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordCount     = "record_count"
	AssertSchemaType      = "schema_type"
	AssertEventsPublished = "events_published"
	AssertStepCount       = "step_count"
)

// LoadScenario reads and parses a scenario YAML file. A relative catalog
// path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the catalog path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) && basePath != "" {
		scenario.Catalog = filepath.Join(basePath, scenario.Catalog)
	}
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes a scenario, rejecting unknown fields. The catalog
// path is left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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
	if s.Catalog != "" && s.Kinds != nil {
		return fmt.Errorf("catalog and kinds are mutually exclusive")
	}
	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog file not found: %s", s.Catalog)
		}
	}
	if s.Fixtures < 0 {
		return fmt.Errorf("fixtures must be non-negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		set := 0
		if step.Query != "" {
			set++
		}
		if len(step.Append) > 0 {
			set++
		}
		if step.Close {
			set++
		}
		if set != 1 {
			return fmt.Errorf("steps[%d]: exactly one of query, append or close is required", i)
		}
		if step.Expect == nil {
			continue
		}
		if step.Query == "" && (step.Expect.Data != nil || len(step.Expect.Errors) > 0) {
			return fmt.Errorf("steps[%d].expect: data and errors only apply to queries", i)
		}
		if len(step.Append) == 0 && step.Expect.Error != "" {
			return fmt.Errorf("steps[%d].expect: error only applies to appends", i)
		}
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
	case AssertRecordCount, AssertEventsPublished:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertSchemaType:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for schema_type", index)
		}
	case AssertStepCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for step_count", index)
		}
		switch a.Step {
		case "", StepQuery, StepAppend, StepClose:
		default:
			return fmt.Errorf("assertions[%d]: unknown step type %q", index, a.Step)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
