// Package topology holds the authoritative in-memory graph of the
// installation: devices and their nodes, tags, floors and their rooms, and
// the single process-wide automation definition.
//
// The graph is pure state. Mutations have no side effects beyond the graph
// itself — persistence and bus publication are the caller's responsibility,
// which enforces a single mutation-then-persist ordering everywhere.
//
// # Concurrency
//
// Every read and mutation goes through Graph methods, which serialize access
// with a single RWMutex. Handlers never hold the lock across I/O: they
// mutate, release, then persist, and revert the in-memory mutation if the
// durable step fails.
//
// # Lifecycle
//
// The graph is built once at process start by loading every persisted
// entity (see internal/store), lives for the process lifetime, and is
// mutated exclusively through command handlers.
package topology
