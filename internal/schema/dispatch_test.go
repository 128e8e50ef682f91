package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleics/gql-dyn/internal/ir"
)

func TestDispatchUsesKindTag(t *testing.T) {
	s := mustGenerate(t, zooConfig())
	d := s.Dispatcher()

	records := []ir.Record{
		cat("1", "Cat 0", "long"),
		dog("2", "Dog 0", "Retriever"),
		elephant("3", "Elephant 0", 0),
		// Fields never influence dispatch: a Cat with no fields at all.
		{ID: "4", Name: "bare", Kind: "Cat"},
	}
	for _, rec := range records {
		t.Run(rec.ID, func(t *testing.T) {
			obj, err := d.Dispatch(rec)
			require.NoError(t, err)
			assert.Equal(t, string(rec.Kind), obj.Name())

			registered, ok := s.Object(rec.Kind)
			require.True(t, ok)
			assert.Same(t, registered, obj)
		})
	}
}

func TestDispatchAcceptsRecordPointers(t *testing.T) {
	s := mustGenerate(t, zooConfig())
	rec := dog("1", "Dog 0", "Retriever")

	obj, err := s.Dispatcher().Dispatch(&rec)
	require.NoError(t, err)
	assert.Equal(t, "Dog", obj.Name())
}

func TestDispatchUnknownKind(t *testing.T) {
	s := mustGenerate(t, zooConfig())

	_, err := s.Dispatcher().Dispatch(ir.Record{ID: "b1", Name: "Tweety", Kind: "Bird"})
	require.Error(t, err)
	assert.True(t, IsUnknownKind(err))

	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ir.KindID("Bird"), re.Kind)
	assert.Equal(t, "b1", re.RecordID)
}

func TestDispatchNonRecord(t *testing.T) {
	s := mustGenerate(t, zooConfig())

	_, err := s.Dispatcher().Dispatch("Cat")
	assert.True(t, IsUnknownKind(err))

	_, err = s.Dispatcher().Dispatch((*ir.Record)(nil))
	assert.True(t, IsUnknownKind(err))
}

func TestDispatchIgnoresKindsOfOtherBuilds(t *testing.T) {
	withBird := zooConfig()
	withBird["Bird"] = ir.KindSchema{Kind: "Bird", Fields: map[string]ir.FieldType{"wings": ir.FieldNumber}}
	_ = mustGenerate(t, withBird)

	s := mustGenerate(t, zooConfig())
	_, err := s.Dispatcher().Dispatch(ir.Record{ID: "b1", Kind: "Bird"})
	assert.True(t, IsUnknownKind(err))
}
