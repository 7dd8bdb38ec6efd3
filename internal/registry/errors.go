package registry

import "errors"

var (
	// ErrIndexOutOfRange indicates a positional lookup past the end of
	// the registry.
	ErrIndexOutOfRange = errors.New("registry: index out of range")

	// ErrSystemNotFound indicates no registered system carries the
	// requested identifier.
	ErrSystemNotFound = errors.New("registry: system not found")

	// ErrDuplicateSystemID indicates an add with an identifier that is
	// already registered.
	ErrDuplicateSystemID = errors.New("registry: duplicate system id")
)
