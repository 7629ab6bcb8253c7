package store

import "errors"

// Domain errors for the store package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, store.ErrConflict) {
//	    // id already persisted
//	}
var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrConflict is returned when inserting a record whose id already exists.
	ErrConflict = errors.New("store: record already exists")
)
