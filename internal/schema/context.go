package schema

import (
	"fmt"

	"github.com/aleics/gql-dyn/internal/ir"
)

// SchemaContext is the immutable configuration snapshot a schema was built
// from. It is shared by every type of the schema and read without locks.
type SchemaContext struct {
	config      ir.Configuration
	fingerprint string
	types       map[ir.KindID]*TypeContext
}

// TypeContext binds one kind's schema to the SchemaContext it belongs to.
// The concrete type resolver consults it to map field names to types.
type TypeContext struct {
	Kind   ir.KindSchema
	Schema *SchemaContext
}

func newSchemaContext(cfg ir.Configuration) (*SchemaContext, error) {
	snapshot := cfg.Clone()
	fp, err := ir.Fingerprint(snapshot)
	if err != nil {
		return nil, fmt.Errorf("schema context: %w", err)
	}

	sc := &SchemaContext{
		config:      snapshot,
		fingerprint: fp,
		types:       make(map[ir.KindID]*TypeContext, len(snapshot)),
	}
	for kind, ks := range snapshot {
		sc.types[kind] = &TypeContext{Kind: ks, Schema: sc}
	}
	return sc, nil
}

// Kinds returns the kinds of the snapshot in sorted order.
func (c *SchemaContext) Kinds() []ir.KindID {
	return c.config.Kinds()
}

// Lookup returns the field schema of kind.
func (c *SchemaContext) Lookup(kind ir.KindID) (ir.KindSchema, bool) {
	return c.config.Lookup(kind)
}

// TypeContext returns the type context of kind.
func (c *SchemaContext) TypeContext(kind ir.KindID) (*TypeContext, bool) {
	tc, ok := c.types[kind]
	return tc, ok
}

// Fingerprint identifies the configuration the schema was built from.
func (c *SchemaContext) Fingerprint() string {
	return c.fingerprint
}

// Configuration returns a copy of the snapshot.
func (c *SchemaContext) Configuration() ir.Configuration {
	return c.config.Clone()
}
