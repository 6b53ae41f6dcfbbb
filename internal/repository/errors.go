package repository

import "errors"

// Sentinel errors surfaced by repositories for constraint violations the
// services translate into user-facing conflicts.
var (
	// ErrDuplicate reports a unique-constraint violation (e.g. a second
	// check-in for the same user and lesson).
	ErrDuplicate = errors.New("duplicate record")

	// ErrCapacityExceeded reports that a capacity-checked insert found no
	// seat left while holding the subject row lock.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)
