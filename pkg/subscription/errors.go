package subscription

import "errors"

var (
	ErrRecordNotFound     = errors.New("subscription: record not found")
	ErrInvalidRecord      = errors.New("subscription: invalid record")
	ErrFailedToGetRecord  = errors.New("subscription: failed to get record")
	ErrFailedToSaveRecord = errors.New("subscription: failed to save record")
)
