// Package fixtures provides the built-in kind catalog and a deterministic
// record generator for demos and tests.
package fixtures

import (
	"fmt"

	"github.com/aleics/gql-dyn/internal/idgen"
	"github.com/aleics/gql-dyn/internal/ir"
)

// DefaultCatalog returns the built-in Cat/Dog/Elephant catalog. Each call
// builds a fresh Configuration.
func DefaultCatalog() ir.Configuration {
	return ir.Configuration{
		"Cat":      {Kind: "Cat", Fields: map[string]ir.FieldType{"fur": ir.FieldString}},
		"Dog":      {Kind: "Dog", Fields: map[string]ir.FieldType{"breed": ir.FieldString}},
		"Elephant": {Kind: "Elephant", Fields: map[string]ir.FieldType{"age": ir.FieldNumber}},
	}
}

// builtinValues are the values the demo kinds carry. A declared field not
// listed here falls back to the generic value.
var builtinValues = map[ir.KindID]map[string]func(i int) ir.FieldValue{
	"Cat":      {"fur": func(int) ir.FieldValue { return ir.StringValue("long") }},
	"Dog":      {"breed": func(int) ir.FieldValue { return ir.StringValue("Retriever") }},
	"Elephant": {"age": func(i int) ir.FieldValue { return ir.NumberValue(int32(i)) }},
}

// genericValue is "<field> <i>" for strings and i for numbers.
func genericValue(field string, ft ir.FieldType, i int) ir.FieldValue {
	if ft == ir.FieldNumber {
		return ir.NumberValue(int32(i))
	}
	return ir.StringValue(fmt.Sprintf("%s %d", field, i))
}

// Generate builds amount/len(cfg) records per kind, named "<Kind> <i>",
// kinds in sorted order. Ids come from ids. Every generated record is
// checked against cfg.
func Generate(cfg ir.Configuration, amount int, ids idgen.Generator) ([]ir.Record, error) {
	if amount < 0 {
		return nil, fmt.Errorf("fixtures: amount must not be negative, got %d", amount)
	}
	if len(cfg) == 0 {
		return []ir.Record{}, nil
	}

	perKind := amount / len(cfg)
	records := make([]ir.Record, 0, perKind*len(cfg))
	for _, kind := range cfg.Kinds() {
		ks := cfg[kind]
		for i := 0; i < perKind; i++ {
			id, err := ids.Generate()
			if err != nil {
				return nil, err
			}
			rec := ir.Record{
				ID:     id,
				Name:   fmt.Sprintf("%s %d", kind, i),
				Kind:   kind,
				Fields: make(map[string]ir.FieldValue, len(ks.Fields)),
			}
			for _, field := range ks.FieldNames() {
				ft := ks.Fields[field]
				v := genericValue(field, ft, i)
				if build, ok := builtinValues[kind][field]; ok {
					if bv := build(i); bv.Type() == ft {
						v = bv
					}
				}
				rec.Fields[field] = v
			}
			if err := ir.ValidateRecord(cfg, rec); err != nil {
				return nil, fmt.Errorf("fixtures: %w", err)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}
