package statistics

import "errors"

// Sentinel errors for statistics operations.
var (
	// ErrDisabled indicates statistics are disabled in config.
	ErrDisabled = errors.New("statistics: disabled in configuration")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("statistics: connection failed")

	// ErrInvalidQuery indicates the query parameters failed validation.
	ErrInvalidQuery = errors.New("statistics: invalid query")

	// ErrQueryFailed indicates InfluxDB rejected or aborted the query.
	ErrQueryFailed = errors.New("statistics: query failed")
)
