package hub

import (
	"errors"
	"fmt"

	"github.com/haven-home/haven-core/internal/statistics"
	"github.com/haven-home/haven-core/internal/store"
	"github.com/haven-home/haven-core/internal/topology"
)

// Error codes carried on response frames.
const (
	CodeNotFound      = "not_found"
	CodeConflict      = "conflict"
	CodeValidation    = "validation"
	CodePersistence   = "persistence_failure"
	CodeBus           = "bus_failure"
	CodeUnknownMethod = "unknown_method"
)

// ErrUnknownMethod is returned when a request names a method the router
// does not know. Surfaced to the client as an explicit error response,
// never silently dropped.
var ErrUnknownMethod = errors.New("hub: unknown method")

// Error is a command failure as it appears on the wire.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// errValidation builds a validation error from a format string.
func errValidation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// errBus wraps a device bus failure.
func errBus(err error) *Error {
	return &Error{Code: CodeBus, Message: err.Error()}
}

// wireError maps a handler error to its wire representation.
// Sentinels from the topology and store packages carry their own codes;
// anything unclassified failed between the graph and the store and is
// reported as a persistence failure.
func wireError(err error) *Error {
	var coded *Error
	if errors.As(err, &coded) {
		return coded
	}

	switch {
	case errors.Is(err, ErrUnknownMethod):
		return &Error{Code: CodeUnknownMethod, Message: err.Error()}
	case errors.Is(err, topology.ErrDeviceNotFound),
		errors.Is(err, topology.ErrNodeNotFound),
		errors.Is(err, topology.ErrTagNotFound),
		errors.Is(err, topology.ErrFloorNotFound),
		errors.Is(err, topology.ErrRoomNotFound),
		errors.Is(err, store.ErrNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, topology.ErrTagExists),
		errors.Is(err, topology.ErrFloorExists),
		errors.Is(err, topology.ErrRoomExists),
		errors.Is(err, store.ErrConflict):
		return &Error{Code: CodeConflict, Message: err.Error()}
	case errors.Is(err, statistics.ErrInvalidQuery):
		return &Error{Code: CodeValidation, Message: err.Error()}
	default:
		return &Error{Code: CodePersistence, Message: err.Error()}
	}
}
