package grants

import "errors"

var (
	// ErrNotFound is returned when a referenced grant, team or membership
	// does not exist. Never retried.
	ErrNotFound = errors.New("grants: not found")

	// ErrDuplicateActiveGrant is returned by GrantAccess when the ledger
	// policy disallows duplicates and an active grant for the same
	// (user, purchasable) pair already exists.
	ErrDuplicateActiveGrant = errors.New("grants: duplicate active grant")

	// ErrConcurrentModification is returned when a conditional update found
	// the row in an unexpected state. Callers may retry the whole operation
	// a bounded number of times.
	ErrConcurrentModification = errors.New("grants: concurrent modification")
)
