package schema

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/aleics/gql-dyn/internal/ir"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestSDLGolden(t *testing.T) {
	tests := []struct {
		name string
		cfg  ir.Configuration
		opts []Option
	}{
		{name: "zoo", cfg: zooConfig()},
		{name: "empty", cfg: ir.Configuration{}},
		{
			name: "creatures",
			cfg: ir.Configuration{
				"Bird": {Kind: "Bird", Fields: map[string]ir.FieldType{"wings": ir.FieldNumber, "color": ir.FieldString}},
			},
			opts: []Option{WithInterfaceName("Creature"), WithListField("creatures")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustGenerate(t, tt.cfg, tt.opts...)
			newGoldie(t).Assert(t, tt.name, []byte(s.SDL()))
		})
	}
}

func TestShapeListsInterfaceObjectsAndQuery(t *testing.T) {
	shape := mustGenerate(t, zooConfig()).Shape()

	var names []string
	for _, ts := range shape.Types {
		names = append(names, ts.Name)
	}
	assert.Equal(t, []string{"Animal", "Cat", "Dog", "Elephant", "Query"}, names)

	query := shape.Types[len(shape.Types)-1]
	assert.Equal(t, []FieldShape{{
		Name: "animals",
		Type: "[Animal]!",
		Args: []FieldShape{{Name: "kind", Type: "String"}},
	}}, query.Fields)
}

func TestShapeDiffersWithConfiguration(t *testing.T) {
	cfg := zooConfig()
	a := mustGenerate(t, cfg).Shape()

	cfg["Cat"].Fields["lives"] = ir.FieldNumber
	b := mustGenerate(t, cfg).Shape()

	assert.NotEqual(t, a, b)
}
