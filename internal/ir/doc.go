// Package ir provides the data model shared by every gql-dyn package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the kind catalog and the
// record representation at the bottom of the dependency graph.
//
// Key design constraints:
//   - Field values are either String or Number (32-bit signed integer)
//   - A Configuration is immutable once handed to a schema build
//   - Records carry their kind as a runtime tag; the tag alone selects a type
package ir
