package ledger

import "errors"

var (
	// ErrDuplicateTransaction is returned when the transaction id is already recorded
	ErrDuplicateTransaction = errors.New("transaction already recorded")

	// ErrEntryNotFound is returned when no ledger entry matches
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrUnknownUser is returned when the entry owner has no account row. Not retryable.
	ErrUnknownUser = errors.New("ledger owner does not exist")

	// ErrStorage wraps transient datastore failures; callers may retry
	ErrStorage = errors.New("ledger storage error")
)
