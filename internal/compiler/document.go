package compiler

import (
	"bytes"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/aleics/gql-dyn/internal/ir"
)

// ReservedNames are type names a kind may never take: the root operation
// types and the default interface name.
var ReservedNames = []string{"Query", "Mutation", "Subscription", "Animal"}

// Document is the plain-data form of a kind catalog shared by the YAML,
// TOML and JSON formats:
//
//	kinds:
//	  Cat: {fur: string}
//	  Elephant: {age: number}
type Document struct {
	Kinds map[string]map[string]string `yaml:"kinds" toml:"kinds" json:"kinds"`
}

// CompileDocument turns a decoded Document into a Configuration.
func CompileDocument(doc Document) (ir.Configuration, error) {
	if doc.Kinds == nil {
		return nil, &CompileError{Field: "kinds", Message: "kinds is required"}
	}

	cfg := make(ir.Configuration, len(doc.Kinds))
	for kindName, fields := range doc.Kinds {
		kind := ir.KindID(kindName)
		ks := ir.KindSchema{Kind: kind, Fields: make(map[string]ir.FieldType, len(fields))}
		for fieldName, typeName := range fields {
			ft, err := ir.ParseFieldType(typeName)
			if err != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("kinds.%s.%s", kindName, fieldName),
					Message: err.Error(),
				}
			}
			ks.Fields[fieldName] = ft
		}
		cfg[kind] = ks
	}

	if err := ir.ValidateConfiguration(cfg, ReservedNames...); err != nil {
		return nil, fromConfigError(err, token.NoPos)
	}
	return cfg, nil
}

// CompileYAML decodes and compiles a YAML catalog.
func CompileYAML(data []byte) (ir.Configuration, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}
	return CompileDocument(doc)
}

// CompileTOML decodes and compiles a TOML catalog:
//
//	[kinds.Cat]
//	fur = "string"
func CompileTOML(data []byte) (ir.Configuration, error) {
	var doc Document
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, &CompileError{Field: "toml", Message: err.Error()}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, &CompileError{Field: "toml", Message: fmt.Sprintf("unknown keys: %v", undecoded)}
	}
	return CompileDocument(doc)
}

// CompileJSON decodes and compiles a JSON catalog.
func CompileJSON(data []byte) (ir.Configuration, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, &CompileError{Field: "json", Message: err.Error()}
	}
	return CompileDocument(doc)
}
