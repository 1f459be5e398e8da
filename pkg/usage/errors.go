package usage

import "errors"

var (
	ErrInvalidFeature = errors.New("usage: invalid feature")
	ErrInvalidEvent   = errors.New("usage: invalid event")

	// ErrDuplicateEvent signals that an event with the same idempotency key
	// already exists for the user and feature. Callers generally treat this
	// as success rather than a failure.
	ErrDuplicateEvent = errors.New("usage: duplicate event for idempotency key")

	ErrFailedToAppendEvent = errors.New("usage: failed to append event")
	ErrFailedToCountEvents = errors.New("usage: failed to count events")
)
