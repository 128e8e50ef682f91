package schema

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/aleics/gql-dyn/internal/ir"
)

// Dispatcher owns the shared interface and maps interface-typed values to
// their concrete object type using only the record's kind tag.
type Dispatcher struct {
	schema   *SchemaContext
	registry *registry
	iface    *graphql.Interface
}

func newDispatcher(name string, sc *SchemaContext) *Dispatcher {
	d := &Dispatcher{schema: sc}
	d.iface = graphql.NewInterface(graphql.InterfaceConfig{
		Name: name,
		Fields: graphql.Fields{
			ir.SharedField: &graphql.Field{Type: graphql.String},
		},
		ResolveType: d.resolveType,
	})
	return d
}

// bind attaches the registry the dispatcher looks types up in. The registry
// is created after the interface because every object references it.
func (d *Dispatcher) bind(r *registry) {
	d.registry = r
}

// Interface returns the shared interface definition.
func (d *Dispatcher) Interface() *graphql.Interface {
	return d.iface
}

// Dispatch returns the concrete type of value, which must be a record whose
// kind belongs to the schema.
func (d *Dispatcher) Dispatch(value any) (*graphql.Object, error) {
	rec, ok := asRecord(value)
	if !ok {
		return nil, &ResolveError{
			Code:    ErrCodeUnknownKind,
			Message: fmt.Sprintf("cannot dispatch %T", value),
		}
	}
	if _, ok := d.schema.Lookup(rec.Kind); !ok {
		return nil, &ResolveError{
			Code:     ErrCodeUnknownKind,
			Message:  "record kind is not part of the schema",
			Kind:     rec.Kind,
			RecordID: rec.ID,
		}
	}
	obj, ok := d.registry.lookup(rec.Kind)
	if !ok {
		return nil, &ResolveError{
			Code:     ErrCodeUnknownKind,
			Message:  "no type registered for kind",
			Kind:     rec.Kind,
			RecordID: rec.ID,
		}
	}
	return obj, nil
}

// resolveType adapts Dispatch to graphql-go. ResolveType has no error
// return; the executor recovers a panic per nullable list item and reports
// it as a located error on that item only.
func (d *Dispatcher) resolveType(p graphql.ResolveTypeParams) *graphql.Object {
	obj, err := d.Dispatch(p.Value)
	if err != nil {
		panic(err)
	}
	return obj
}
