package ir

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// KindID names a record kind. It doubles as the name of the object type
// generated for that kind.
type KindID string

// FieldType is the declared type of a kind field.
type FieldType string

const (
	// FieldString maps to the GraphQL String scalar.
	FieldString FieldType = "String"

	// FieldNumber maps to the GraphQL Int scalar (32-bit signed).
	FieldNumber FieldType = "Number"
)

// SharedField is the field every kind exposes through the shared interface.
const SharedField = "name"

// ParseFieldType accepts the catalog spellings of a field type.
// "string" and "String" map to FieldString; "number", "Number" and "int"
// map to FieldNumber.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.TrimSpace(s) {
	case "string", "String":
		return FieldString, nil
	case "number", "Number", "int", "Int":
		return FieldNumber, nil
	default:
		return "", fmt.Errorf("unknown field type %q (want string or number)", s)
	}
}

// Valid reports whether t is one of the declared field types.
func (t FieldType) Valid() bool {
	return t == FieldString || t == FieldNumber
}

// KindSchema declares the fields of one kind.
type KindSchema struct {
	Kind   KindID               `json:"kind"`
	Fields map[string]FieldType `json:"fields"`
}

// Lookup returns the declared type of field.
func (k KindSchema) Lookup(field string) (FieldType, bool) {
	t, ok := k.Fields[field]
	return t, ok
}

// FieldNames returns the declared field names in sorted order.
func (k KindSchema) FieldNames() []string {
	names := make([]string, 0, len(k.Fields))
	for name := range k.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone returns a deep copy of the kind schema.
func (k KindSchema) Clone() KindSchema {
	fields := make(map[string]FieldType, len(k.Fields))
	for name, t := range k.Fields {
		fields[name] = t
	}
	return KindSchema{Kind: k.Kind, Fields: fields}
}

// Configuration maps every kind to its field schema.
// Map keys and KindSchema.Kind always agree.
type Configuration map[KindID]KindSchema

// Kinds returns the configured kinds in sorted order.
func (c Configuration) Kinds() []KindID {
	kinds := make([]KindID, 0, len(c))
	for kind := range c {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

// Lookup returns the schema of kind.
func (c Configuration) Lookup(kind KindID) (KindSchema, bool) {
	ks, ok := c[kind]
	return ks, ok
}

// Clone returns a deep copy, so callers can hand the result to a schema
// build without sharing mutable state.
func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	for kind, ks := range c {
		out[kind] = ks.Clone()
	}
	return out
}

// nameRE is the GraphQL name grammar.
var nameRE = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// builtinTypeNames can never be used as a kind.
var builtinTypeNames = []string{"String", "Int", "Float", "Boolean", "ID"}

// ConfigError reports a catalog that cannot become a schema.
type ConfigError struct {
	Kind    KindID
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Kind != "" && e.Field != "":
		return fmt.Sprintf("kind %s field %s: %s", e.Kind, e.Field, e.Message)
	case e.Kind != "":
		return fmt.Sprintf("kind %s: %s", e.Kind, e.Message)
	default:
		return e.Message
	}
}

// ValidateName checks s against the GraphQL name grammar, rejecting the
// "__" prefix reserved for introspection.
func ValidateName(s string) error {
	if !nameRE.MatchString(s) {
		return fmt.Errorf("%q is not a valid GraphQL name", s)
	}
	if strings.HasPrefix(s, "__") {
		return fmt.Errorf("%q uses the reserved \"__\" prefix", s)
	}
	return nil
}

// ValidateConfiguration checks every kind and field name of c. Kinds may not
// reuse a built-in scalar name or any of the reserved type names. Fields may
// not redeclare the shared name field and must carry a known type.
func ValidateConfiguration(c Configuration, reserved ...string) error {
	taken := make(map[string]bool, len(builtinTypeNames)+len(reserved))
	for _, name := range builtinTypeNames {
		taken[name] = true
	}
	for _, name := range reserved {
		taken[name] = true
	}

	for _, kind := range c.Kinds() {
		ks := c[kind]
		if ks.Kind != kind {
			return &ConfigError{Kind: kind, Message: fmt.Sprintf("schema is registered under a different kind %q", ks.Kind)}
		}
		if err := ValidateName(string(kind)); err != nil {
			return &ConfigError{Kind: kind, Message: err.Error()}
		}
		if taken[string(kind)] {
			return &ConfigError{Kind: kind, Message: "kind name collides with a reserved type name"}
		}
		for _, field := range ks.FieldNames() {
			if err := ValidateName(field); err != nil {
				return &ConfigError{Kind: kind, Field: field, Message: err.Error()}
			}
			if field == SharedField {
				return &ConfigError{Kind: kind, Field: field, Message: "field is provided by every kind and cannot be redeclared"}
			}
			if !ks.Fields[field].Valid() {
				return &ConfigError{Kind: kind, Field: field, Message: fmt.Sprintf("unknown field type %q", ks.Fields[field])}
			}
		}
	}
	return nil
}
