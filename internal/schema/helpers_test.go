package schema

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/require"

	"github.com/aleics/gql-dyn/internal/ir"
)

const zooQuery = `{
  animals {
    name
    ... on Cat { fur }
    ... on Dog { breed }
    ... on Elephant { age }
  }
}`

func zooConfig() ir.Configuration {
	return ir.Configuration{
		"Cat":      {Kind: "Cat", Fields: map[string]ir.FieldType{"fur": ir.FieldString}},
		"Dog":      {Kind: "Dog", Fields: map[string]ir.FieldType{"breed": ir.FieldString}},
		"Elephant": {Kind: "Elephant", Fields: map[string]ir.FieldType{"age": ir.FieldNumber}},
	}
}

func cat(id, name, fur string) ir.Record {
	return ir.Record{ID: id, Name: name, Kind: "Cat", Fields: map[string]ir.FieldValue{"fur": ir.StringValue(fur)}}
}

func dog(id, name, breed string) ir.Record {
	return ir.Record{ID: id, Name: name, Kind: "Dog", Fields: map[string]ir.FieldValue{"breed": ir.StringValue(breed)}}
}

func elephant(id, name string, age int32) ir.Record {
	return ir.Record{ID: id, Name: name, Kind: "Elephant", Fields: map[string]ir.FieldValue{"age": ir.NumberValue(age)}}
}

// staticRecords is a fixed RecordSource.
type staticRecords []ir.Record

func (s staticRecords) Snapshot() ([]ir.Record, error) { return s, nil }

// failingRecords always fails to snapshot.
type failingRecords struct{}

func (failingRecords) Snapshot() ([]ir.Record, error) { return nil, errors.New("store closed") }

func quietGenerator(opts ...Option) *Generator {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewGenerator(opts...)
}

func mustGenerate(t *testing.T, cfg ir.Configuration, opts ...Option) *Schema {
	t.Helper()
	s, err := quietGenerator(opts...).Generate(cfg)
	require.NoError(t, err)
	return s
}

func execute(t *testing.T, s *Schema, src RecordSource, query string) *graphql.Result {
	t.Helper()
	return s.Execute(WithRecords(context.Background(), src), Request{Query: query})
}

// canonicalData renders result data as canonical JSON for exact comparison.
func canonicalData(t *testing.T, res *graphql.Result) string {
	t.Helper()
	data, err := ir.MarshalCanonical(res.Data)
	require.NoError(t, err)
	return string(data)
}
