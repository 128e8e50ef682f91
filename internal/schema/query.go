package schema

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/aleics/gql-dyn/internal/ir"
)

// QueryTypeName is the name of the root query type.
const QueryTypeName = "Query"

// kindArg filters the listing to a single kind.
const kindArg = "kind"

// RecordSource yields a consistent snapshot of the stored records in
// insertion order. store.RecordStore implements it.
type RecordSource interface {
	Snapshot() ([]ir.Record, error)
}

type recordsKey struct{}

// WithRecords binds the record source queries executed with ctx read from.
func WithRecords(ctx context.Context, src RecordSource) context.Context {
	return context.WithValue(ctx, recordsKey{}, src)
}

func recordsFrom(ctx context.Context) (RecordSource, bool) {
	if ctx == nil {
		return nil, false
	}
	src, ok := ctx.Value(recordsKey{}).(RecordSource)
	return src, ok && src != nil
}

// newQueryRoot declares Query { <listField>(kind: String): [<Interface>]! }.
// Items are nullable so a dispatch failure only nulls its own entry.
func newQueryRoot(listField string, iface *graphql.Interface) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: QueryTypeName,
		Fields: graphql.Fields{
			listField: &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(iface)),
				Args: graphql.FieldConfigArgument{
					kindArg: &graphql.ArgumentConfig{
						Type:        graphql.String,
						Description: "Only return records of this kind.",
					},
				},
				Resolve: resolveRecords,
			},
		},
	})
}

func resolveRecords(p graphql.ResolveParams) (interface{}, error) {
	src, ok := recordsFrom(p.Context)
	if !ok {
		return nil, &ResolveError{
			Code:    ErrCodeStoreUnavailable,
			Message: "no record store bound to the request",
		}
	}

	records, err := src.Snapshot()
	if err != nil {
		return nil, &ResolveError{
			Code:    ErrCodeStoreUnavailable,
			Message: "record snapshot failed",
			Err:     err,
		}
	}

	if records == nil {
		// A nil slice would read as null for the non-null list.
		records = []ir.Record{}
	}

	kind, _ := p.Args[kindArg].(string)
	if kind == "" {
		return records, nil
	}
	filtered := make([]ir.Record, 0, len(records))
	for _, rec := range records {
		if rec.Kind == ir.KindID(kind) {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}
