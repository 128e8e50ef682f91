// Package harness runs GraphQL conformance scenarios against a generated
// schema and an in-memory record store.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: zoo_fixtures
//	description: "What this scenario validates"
//	catalog: ../catalogs/zoo.yaml   # or inline `kinds:`; default is the built-in zoo
//	fixtures: 3                     # generated records, split over the kinds
//	records:                        # seeded records, validated like any append
//	  - {id: c1, name: Tom, kind: Cat, fields: {fur: grey}}
//	steps:
//	  - query: "{ animals { name } }"
//	    expect:
//	      data: {animals: [{name: Tom}]}
//	  - append:
//	      - {name: Jumbo, kind: Elephant, fields: {age: "old"}}
//	    expect:
//	      error: TYPE_MISMATCH
//	  - close: true
//	assertions:
//	  - type: record_count
//	    kind: Cat
//	    count: 1
//
// # Assertion Types
//
//   - record_count: number of stored records, optionally of one kind
//   - schema_type: a type exists, optionally with the listed fields
//   - events_published: number of append notifications
//   - step_count: number of executed steps, optionally of one kind
//
// # Deterministic Runs
//
// Records without an id get sequential ids (rec-1, rec-2, ...) from
// testutil.SequentialIDs, and query results are written as canonical JSON,
// so traces are stable enough for golden file comparison.
package harness
