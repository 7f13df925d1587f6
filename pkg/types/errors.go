package types

import "errors"

// Domain errors shared across components
var (
	// ErrEntityNotFound is returned when querying an entity that has never
	// had text added. It is a distinguished miss, not a fault.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidLimit is returned for a negative result limit.
	ErrInvalidLimit = errors.New("limit must not be negative")

	// ErrInvalidChunkSize is returned for a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap is returned when overlap is negative or not smaller
	// than the chunk size.
	ErrInvalidOverlap = errors.New("overlap must be in [0, chunk size)")
)
