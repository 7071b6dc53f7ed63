package sequence

import "errors"

var (
	// ErrEmptyEntity is returned when Next is called without an entity name.
	ErrEmptyEntity = errors.New("sequence: entity name is required")

	// ErrAllocationFailed is returned when the backing store cannot complete the atomic increment.
	ErrAllocationFailed = errors.New("sequence: failed to allocate identifier")
)
