// File: internal/overrides/errors.go
package overrides

import "errors"

var (
	// ErrHostUnavailable means the host page could not be reached at all:
	// no active tab, a restricted URL, or a dead debugging connection.
	ErrHostUnavailable = errors.New("host page unavailable")

	// ErrPersistence means the override document could not be written. The
	// in-memory change that triggered the write has already been reverted
	// when this is returned.
	ErrPersistence = errors.New("could not save overrides")

	// ErrInvalidName is returned for blank gate, experiment or parameter names.
	ErrInvalidName = errors.New("name must not be empty")

	// ErrNotFound is returned when removing an override that does not exist.
	ErrNotFound = errors.New("override not found")

	// ErrCancelled is returned when the user declines a confirmation prompt.
	ErrCancelled = errors.New("cancelled by user")
)
