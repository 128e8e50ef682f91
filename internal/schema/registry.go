package schema

import (
	"github.com/graphql-go/graphql"

	"github.com/aleics/gql-dyn/internal/ir"
)

// registry holds the concrete object type of every kind for one schema
// build. It is filled while the schema is generated and only read once the
// schema is published, so it needs no lock.
type registry struct {
	iface   *graphql.Interface
	objects map[ir.KindID]*graphql.Object
	built   int
}

func newRegistry(iface *graphql.Interface) *registry {
	return &registry{
		iface:   iface,
		objects: make(map[ir.KindID]*graphql.Object),
	}
}

// getOrRegister returns the object type of tc's kind, building it on first
// request. Later calls return the same instance.
func (r *registry) getOrRegister(tc *TypeContext) *graphql.Object {
	if obj, ok := r.objects[tc.Kind.Kind]; ok {
		return obj
	}
	obj := buildObject(tc, r.iface)
	r.objects[tc.Kind.Kind] = obj
	r.built++
	return obj
}

func (r *registry) lookup(kind ir.KindID) (*graphql.Object, bool) {
	obj, ok := r.objects[kind]
	return obj, ok
}

// types lists the registered objects in kind order. The schema needs them
// explicitly since they are only reachable through the interface.
func (r *registry) types(kinds []ir.KindID) []graphql.Type {
	out := make([]graphql.Type, 0, len(kinds))
	for _, kind := range kinds {
		if obj, ok := r.objects[kind]; ok {
			out = append(out, obj)
		}
	}
	return out
}
