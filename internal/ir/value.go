package ir

import (
	"bytes"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// FieldValue is a sealed interface over the values a record field can hold.
// Only StringValue and NumberValue implement it.
type FieldValue interface {
	fieldValue() // Sealed

	// Type returns the FieldType tag of the value.
	Type() FieldType
}

// StringValue holds a String field.
type StringValue string

func (StringValue) fieldValue() {}

// Type implements FieldValue.
func (StringValue) Type() FieldType { return FieldString }

// NumberValue holds a Number field.
type NumberValue int32

func (NumberValue) fieldValue() {}

// Type implements FieldValue.
func (NumberValue) Type() FieldType { return FieldNumber }

// Native returns the plain Go value handed to the query engine:
// string for StringValue, int for NumberValue.
func Native(v FieldValue) any {
	switch val := v.(type) {
	case StringValue:
		return string(val)
	case NumberValue:
		return int(val)
	default:
		return nil
	}
}

// ValueOf converts a decoded JSON, YAML or TOML scalar into a FieldValue.
// Integral numbers must fit in 32 bits; fractional numbers, booleans and
// nested values are rejected.
func ValueOf(v any) (FieldValue, error) {
	switch val := v.(type) {
	case FieldValue:
		return val, nil
	case string:
		return StringValue(val), nil
	case int:
		return numberFromInt64(int64(val))
	case int32:
		return NumberValue(val), nil
	case int64:
		return numberFromInt64(val)
	case uint64:
		if val > math.MaxInt32 {
			return nil, fmt.Errorf("number %d overflows 32 bits", val)
		}
		return NumberValue(int32(val)), nil
	case float64:
		if val != math.Trunc(val) {
			return nil, fmt.Errorf("number %v is not an integer", val)
		}
		return numberFromInt64(int64(val))
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number %s is not an integer", val)
		}
		return numberFromInt64(n)
	case nil:
		return nil, fmt.Errorf("null is not a field value; omit the field instead")
	default:
		return nil, fmt.Errorf("unsupported field value type %T", v)
	}
}

func numberFromInt64(n int64) (FieldValue, error) {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("number %d overflows 32 bits", n)
	}
	return NumberValue(int32(n)), nil
}

// FieldsOf converts a decoded field map into typed field values.
func FieldsOf(raw map[string]any) (map[string]FieldValue, error) {
	fields := make(map[string]FieldValue, len(raw))
	for name, v := range raw {
		fv, err := ValueOf(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = fv
	}
	return fields, nil
}

// NativeFields is the inverse of FieldsOf.
func NativeFields(fields map[string]FieldValue) map[string]any {
	out := make(map[string]any, len(fields))
	for name, v := range fields {
		out[name] = Native(v)
	}
	return out
}

// DecodeFields parses a JSON object of field values.
func DecodeFields(data []byte) (map[string]FieldValue, error) {
	if len(data) == 0 {
		return map[string]FieldValue{}, nil
	}
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return FieldsOf(raw)
}

// EncodeFields renders field values as a JSON object.
func EncodeFields(fields map[string]FieldValue) ([]byte, error) {
	if fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(NativeFields(fields))
}
