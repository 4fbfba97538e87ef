package entitlement

import "errors"

var (
	// ErrStorage wraps datastore failures; safe to retry.
	ErrStorage = errors.New("entitlement storage error")

	// ErrUnknownUser is returned when the caller has no account row. Not retryable.
	ErrUnknownUser = errors.New("account not found")

	// ErrContention is returned when every consumption attempt lost its conditional update.
	ErrContention = errors.New("credit consumption contended, retry")
)
