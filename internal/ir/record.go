package ir

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-json"
)

// Record is one dynamically typed entry of the record store.
//
// Kind is the runtime tag that selects the concrete type at query time.
// Fields holds only the declared fields the record actually carries; a
// declared field missing from the map resolves to null.
type Record struct {
	ID     string
	Name   string
	Kind   KindID
	Fields map[string]FieldValue
}

// Lookup returns the value of field, if present.
func (r Record) Lookup(field string) (FieldValue, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// FieldNames returns the names of the carried fields in sorted order.
func (r Record) FieldNames() []string {
	return slices.Sorted(maps.Keys(r.Fields))
}

// Clone returns a copy whose field map is not shared with r.
func (r Record) Clone() Record {
	fields := make(map[string]FieldValue, len(r.Fields))
	for name, v := range r.Fields {
		fields[name] = v
	}
	r.Fields = fields
	return r
}

// recordJSON is the wire form of a Record.
type recordJSON struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Kind   KindID          `json:"kind"`
	Fields json.RawMessage `json:"fields,omitempty"`
}

// MarshalJSON renders a record as {"id","name","kind","fields"}.
func (r Record) MarshalJSON() ([]byte, error) {
	fields, err := EncodeFields(r.Fields)
	if err != nil {
		return nil, err
	}
	return json.Marshal(recordJSON{ID: r.ID, Name: r.Name, Kind: r.Kind, Fields: fields})
}

// UnmarshalJSON parses the wire form. String values decode to StringValue,
// integers to NumberValue; anything else is rejected.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	fields, err := DecodeFields(raw.Fields)
	if err != nil {
		return fmt.Errorf("record %q: %w", raw.ID, err)
	}
	*r = Record{ID: raw.ID, Name: raw.Name, Kind: raw.Kind, Fields: fields}
	return nil
}
