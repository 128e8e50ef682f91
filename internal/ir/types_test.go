package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zoo() Configuration {
	return Configuration{
		"Cat":      {Kind: "Cat", Fields: map[string]FieldType{"fur": FieldString}},
		"Dog":      {Kind: "Dog", Fields: map[string]FieldType{"breed": FieldString}},
		"Elephant": {Kind: "Elephant", Fields: map[string]FieldType{"age": FieldNumber}},
	}
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		in   string
		want FieldType
	}{
		{"string", FieldString},
		{"String", FieldString},
		{"number", FieldNumber},
		{"Number", FieldNumber},
		{"int", FieldNumber},
		{" int ", FieldNumber},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFieldType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFieldType("float")
	assert.Error(t, err)
}

func TestConfigurationKindsSorted(t *testing.T) {
	assert.Equal(t, []KindID{"Cat", "Dog", "Elephant"}, zoo().Kinds())
	assert.Empty(t, Configuration{}.Kinds())
}

func TestConfigurationCloneIsDeep(t *testing.T) {
	orig := zoo()
	clone := orig.Clone()
	clone["Cat"].Fields["whiskers"] = FieldNumber
	delete(clone, "Dog")

	_, ok := orig["Cat"].Lookup("whiskers")
	assert.False(t, ok)
	_, ok = orig.Lookup("Dog")
	assert.True(t, ok)
}

func TestKindSchemaFieldNames(t *testing.T) {
	ks := KindSchema{Kind: "Bird", Fields: map[string]FieldType{"wings": FieldNumber, "color": FieldString}}
	assert.Equal(t, []string{"color", "wings"}, ks.FieldNames())
}

func TestValidateConfiguration(t *testing.T) {
	require.NoError(t, ValidateConfiguration(zoo(), "Animal", "Query"))
	require.NoError(t, ValidateConfiguration(Configuration{}))

	tests := []struct {
		name string
		cfg  Configuration
		want string
	}{
		{
			name: "invalid kind name",
			cfg:  Configuration{"Big Cat": {Kind: "Big Cat"}},
			want: "not a valid GraphQL name",
		},
		{
			name: "introspection prefix",
			cfg:  Configuration{"__Cat": {Kind: "__Cat"}},
			want: "reserved",
		},
		{
			name: "reserved type",
			cfg:  Configuration{"Query": {Kind: "Query"}},
			want: "collides",
		},
		{
			name: "builtin scalar",
			cfg:  Configuration{"Int": {Kind: "Int"}},
			want: "collides",
		},
		{
			name: "shared field redeclared",
			cfg:  Configuration{"Cat": {Kind: "Cat", Fields: map[string]FieldType{"name": FieldString}}},
			want: "cannot be redeclared",
		},
		{
			name: "unknown type",
			cfg:  Configuration{"Cat": {Kind: "Cat", Fields: map[string]FieldType{"fur": "Bool"}}},
			want: "unknown field type",
		},
		{
			name: "mismatched key",
			cfg:  Configuration{"Cat": {Kind: "Dog"}},
			want: "different kind",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfiguration(tt.cfg, "Animal", "Query")
			require.Error(t, err)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
