// Package store provides the record store behind pulsecheck.
//
// Records are JSON documents addressed by a collection name and a key. The
// package ships three backends with identical semantics:
//
//   - [MemoryStore]: process-local maps, used by tests and ephemeral runs
//   - [BoltStore]: a single bbolt file with one bucket per collection
//   - [SQLiteStore]: one records table managed by embedded goose migrations
//
// Every operation touches one record. Callers that need to update a user and
// a check together do so with two calls and tolerate the window between them.
package store
