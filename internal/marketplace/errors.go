package marketplace

import "errors"

var (
	// ErrInvalidEntity is returned when a construction-time invariant is
	// violated, e.g. a non-positive price or quantity.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrIllegalTransition is returned for any status change the lifecycle
	// rules forbid: skips, backward moves and exits from terminal states.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrDuplicateTransaction is returned when a match that already owns a
	// transaction is asked to sign its contract again.
	ErrDuplicateTransaction = errors.New("transaction already exists for match")

	// ErrIncompatibleMatch is returned when a match is requested for a crop
	// the buyer is not seeking.
	ErrIncompatibleMatch = errors.New("incompatible match")

	// ErrNotFound is returned by repositories when an entity does not exist.
	ErrNotFound = errors.New("not found")
)
