package billing

import "errors"

var (
	ErrMissingWebhookSecret      = errors.New("billing: webhook secret is required")
	ErrWebhookVerificationFailed = errors.New("billing: webhook signature verification failed")
	ErrInvalidWebhook            = errors.New("billing: invalid webhook payload")
	ErrInvalidUserID             = errors.New("billing: webhook carries no valid user id")
	ErrFailedToSyncRecord        = errors.New("billing: failed to sync subscription record")
)
