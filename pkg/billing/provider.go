package billing

import (
	"context"
	"time"
)

// EventType represents the normalized billing event type.
// Each provider implementation maps its specific events to these.
type EventType string

const (
	EventSubscriptionCreated  EventType = "subscription_created"
	EventSubscriptionUpdated  EventType = "subscription_updated"
	EventSubscriptionCanceled EventType = "subscription_canceled"
	EventPaymentFailed        EventType = "payment_failed"
)

// WebhookEvent is a normalized subscription lifecycle event from the
// billing provider.
type WebhookEvent struct {
	Type          EventType
	ProviderEvent string // Original provider event name

	SubscriptionID string // Provider's subscription ID
	CustomerID     string // Provider's customer ID
	UserID         string // Our user ID, set as checkout custom data
	TierID         string // Our tier ID, set as checkout custom data
	Status         string // Provider's subscription status

	// Current billing period bounds as reported by the provider. Either may
	// be absent; the entitlement resolver falls back to calendar months.
	PeriodStart *time.Time
	PeriodEnd   *time.Time

	Raw map[string]any // Full webhook data
}

// Provider validates and parses incoming webhook payloads. Checkout and
// portal flows live in the web billing portal, outside this module; the
// provider surface here is webhook-only.
type Provider interface {
	// ParseWebhook verifies the payload signature and returns the
	// normalized event. Signature verification is mandatory to prevent
	// webhook spoofing.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}
