// Package store is the persistence gateway between the topology graph and
// SQLite. It translates graph mutations into durable-store operations and
// reports success or failure per mutation; it owns no state of its own.
//
// Operations are idempotent at the identifier level: re-inserting an
// existing id fails with ErrConflict, destroying a missing id fails with
// ErrNotFound. No transaction spans multiple entities - multi-step
// operations (room deletion, floor cascade) are sequenced by the command
// handlers, so a partial failure leaves a well-defined, recoverable
// inconsistency rather than a corrupted invariant.
//
// The Loader rebuilds the in-memory graph from the store at process start.
package store
