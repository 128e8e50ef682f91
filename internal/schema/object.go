package schema

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/aleics/gql-dyn/internal/ir"
)

// buildObject creates the object type of one kind: the shared name field
// plus one nullable field per declared field, all resolved by the same
// resolver bound to tc.
func buildObject(tc *TypeContext, iface *graphql.Interface) *graphql.Object {
	resolve := fieldResolver(tc)

	fields := graphql.Fields{
		ir.SharedField: &graphql.Field{
			Type:    graphql.String,
			Resolve: resolve,
		},
	}
	for _, name := range tc.Kind.FieldNames() {
		fields[name] = &graphql.Field{
			Type:    scalarFor(tc.Kind.Fields[name]),
			Resolve: resolve,
		}
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name:       string(tc.Kind.Kind),
		Interfaces: []*graphql.Interface{iface},
		Fields:     fields,
	})
}

func scalarFor(t ir.FieldType) *graphql.Scalar {
	if t == ir.FieldNumber {
		return graphql.Int
	}
	return graphql.String
}

func fieldResolver(tc *TypeContext) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		rec, ok := asRecord(p.Source)
		if !ok {
			return nil, &ResolveError{
				Code:    ErrCodeTypeMismatch,
				Message: fmt.Sprintf("source is %T, not a record", p.Source),
				Kind:    tc.Kind.Kind,
				Field:   p.Info.FieldName,
			}
		}
		return ResolveField(tc, rec, p.Info.FieldName)
	}
}

// ResolveField produces the value of field for rec under tc.
//
// The shared name field comes from the record itself. A declared field that
// the record does not carry resolves to nil (null). A field that tc does not
// declare, or a stored value whose tag differs from the declared type, is an
// error scoped to this field.
func ResolveField(tc *TypeContext, rec ir.Record, field string) (any, error) {
	if field == ir.SharedField {
		return rec.Name, nil
	}

	want, declared := tc.Kind.Lookup(field)
	if !declared {
		return nil, &ResolveError{
			Code:     ErrCodeUnknownField,
			Message:  "field is not declared on this type",
			Kind:     tc.Kind.Kind,
			Field:    field,
			RecordID: rec.ID,
		}
	}

	v, ok := rec.Lookup(field)
	if !ok || v == nil {
		return nil, nil
	}
	if v.Type() != want {
		return nil, &ResolveError{
			Code:     ErrCodeTypeMismatch,
			Message:  fmt.Sprintf("stored %s value for %s field", v.Type(), want),
			Kind:     tc.Kind.Kind,
			Field:    field,
			RecordID: rec.ID,
		}
	}
	return ir.Native(v), nil
}

func asRecord(v any) (ir.Record, bool) {
	switch rec := v.(type) {
	case ir.Record:
		return rec, true
	case *ir.Record:
		if rec == nil {
			return ir.Record{}, false
		}
		return *rec, true
	default:
		return ir.Record{}, false
	}
}
