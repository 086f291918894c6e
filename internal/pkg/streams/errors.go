package streams

import "errors"

var (
	// ErrNotFound is returned when the stream or its owning experience does
	// not exist.
	ErrNotFound = errors.New("streams: not found")

	// ErrInvalidTransition is returned when the requested target state is
	// not reachable from the stream's current state. The caller must
	// re-fetch the current state before retrying.
	ErrInvalidTransition = errors.New("streams: invalid transition")

	// ErrConcurrentModification is returned when another writer moved the
	// stream between the read and the guarded update.
	ErrConcurrentModification = errors.New("streams: concurrent modification")
)
