package entitlement

import "errors"

var (
	// ErrRecordingFailed signals that a gated action was already approved
	// (and likely performed) but its usage event could not be stored. The
	// quota decrement is lost in the user's favor; callers log it loudly and
	// do not block the user or retry indefinitely.
	ErrRecordingFailed = errors.New("entitlement: failed to record usage")

	ErrInvalidFeature = errors.New("entitlement: invalid feature")
)
