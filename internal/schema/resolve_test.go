package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleics/gql-dyn/internal/ir"
)

func typeContext(t *testing.T, kind ir.KindID) *TypeContext {
	t.Helper()
	sc, err := newSchemaContext(zooConfig())
	require.NoError(t, err)
	tc, ok := sc.TypeContext(kind)
	require.True(t, ok)
	return tc
}

func TestResolveFieldValues(t *testing.T) {
	tests := []struct {
		name  string
		kind  ir.KindID
		rec   ir.Record
		field string
		want  any
	}{
		{"shared name", "Cat", cat("1", "Cat 0", "long"), "name", "Cat 0"},
		{"string field", "Cat", cat("1", "Cat 0", "long"), "fur", "long"},
		{"string field on dog", "Dog", dog("2", "Dog 0", "Retriever"), "breed", "Retriever"},
		{"number field", "Elephant", elephant("3", "Elephant 7", 7), "age", 7},
		{"absent field", "Cat", ir.Record{ID: "4", Name: "Cat 1", Kind: "Cat"}, "fur", nil},
		{"nil value", "Cat", ir.Record{ID: "5", Kind: "Cat", Fields: map[string]ir.FieldValue{"fur": nil}}, "fur", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveField(typeContext(t, tt.kind), tt.rec, tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveFieldUnknownField(t *testing.T) {
	_, err := ResolveField(typeContext(t, "Cat"), cat("1", "Cat 0", "long"), "breed")
	require.Error(t, err)
	assert.True(t, IsUnknownField(err))

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ir.KindID("Cat"), re.Kind)
	assert.Equal(t, "breed", re.Field)
}

func TestResolveFieldTypeMismatch(t *testing.T) {
	rec := ir.Record{ID: "1", Name: "Elephant 0", Kind: "Elephant", Fields: map[string]ir.FieldValue{"age": ir.StringValue("old")}}

	_, err := ResolveField(typeContext(t, "Elephant"), rec, "age")
	require.Error(t, err)
	assert.True(t, IsTypeMismatch(err))
	assert.Contains(t, err.Error(), "stored String value for Number field")
}

func TestResolveErrorFormatting(t *testing.T) {
	err := &ResolveError{Code: ErrCodeStoreUnavailable, Message: "record snapshot failed", Err: assert.AnError}
	assert.Equal(t, "STORE_UNAVAILABLE: record snapshot failed: "+assert.AnError.Error(), err.Error())
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, IsStoreUnavailable(err))
	assert.False(t, IsUnknownKind(err))
}
