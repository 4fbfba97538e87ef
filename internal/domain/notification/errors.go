package notification

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrStorage wraps repository failures; callers may retry.
	ErrStorage = errors.New("notification storage unavailable")
)
