// Package store holds the in-memory record store and the JSONL codec used
// to seed it.
//
// Persistent sources live in subpackages: sqlite for local snapshot files,
// postgres for a shared table, s3source for JSONL objects in a bucket. They
// all implement Source and only ever feed RecordStore; queries never read
// from them directly.
package store
