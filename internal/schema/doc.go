// Package schema generates a GraphQL schema at runtime from a kind catalog
// and resolves queries against a dynamically typed record store.
//
// A build proceeds in a fixed order:
//
//  1. The configuration is copied into an immutable SchemaContext.
//  2. The Dispatcher declares the shared interface (default "Animal") with
//     the single field "name".
//  3. Every kind is registered once in a per-build registry as an object
//     type implementing the interface. Its fields are "name" plus one
//     nullable scalar per declared field (String or Int).
//  4. The query root exposes animals(kind: String): [Animal]!.
//
// At query time the list resolver snapshots the RecordSource bound to the
// request context, the Dispatcher maps each record to its object type from
// the record's kind tag, and ResolveField reads values out of the record's
// field map. Failures are scoped: a record of an unknown kind nulls its list
// entry, a bad value nulls its field, and everything else still resolves.
//
// Builds share no mutable state, so a server may call Generate per request
// to follow a changing catalog.
package schema
