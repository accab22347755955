package store

import "errors"

// Sentinel errors for store operations. Check with errors.Is().
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrValidation indicates the input record is malformed. Validation
	// failures are rejected before any network call; no partial state is
	// created.
	ErrValidation = errors.New("invalid record")
)
