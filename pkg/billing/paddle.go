package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle webhook provider.
type PaddleConfig struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
}

// PaddleProvider implements Provider for Paddle webhooks.
type PaddleProvider struct {
	verifier *paddle.WebhookVerifier
}

// NewPaddleProvider creates a Paddle webhook provider.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	return &PaddleProvider{
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
	}, nil
}

// ParseWebhook verifies the Paddle signature and normalizes the event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error) {
	// The verifier works on an http.Request, so wrap the raw payload.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Join(ErrInvalidWebhook, err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	var paddleEvent struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, errors.Join(ErrInvalidWebhook, err)
	}

	event := &WebhookEvent{
		Type:          mapPaddleEventType(paddleEvent.EventType),
		ProviderEvent: paddleEvent.EventType,
		Raw:           paddleEvent.Data,
	}

	if id, ok := paddleEvent.Data["id"].(string); ok {
		event.SubscriptionID = id
	}
	// Transaction events reference their subscription separately.
	if subID, ok := paddleEvent.Data["subscription_id"].(string); ok && subID != "" {
		event.SubscriptionID = subID
	}
	if customerID, ok := paddleEvent.Data["customer_id"].(string); ok {
		event.CustomerID = customerID
	}
	if status, ok := paddleEvent.Data["status"].(string); ok {
		event.Status = status
	}

	// Checkout sets user_id and tier_id as custom data so webhooks map back
	// to our identifiers without a provider-side lookup.
	if customData, ok := paddleEvent.Data["custom_data"].(map[string]any); ok {
		if userID, ok := customData["user_id"].(string); ok {
			event.UserID = userID
		}
		if tierID, ok := customData["tier_id"].(string); ok {
			event.TierID = tierID
		}
	}

	if period, ok := paddleEvent.Data["current_billing_period"].(map[string]any); ok {
		event.PeriodStart = parsePaddleTime(period["starts_at"])
		event.PeriodEnd = parsePaddleTime(period["ends_at"])
	}

	return event, nil
}

func parsePaddleTime(v any) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// mapPaddleEventType maps Paddle event types to internal EventType.
func mapPaddleEventType(paddleEvent string) EventType {
	switch paddleEvent {
	case "subscription.created", "subscription.activated":
		return EventSubscriptionCreated
	case "subscription.updated", "subscription.resumed":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionCanceled
	case "transaction.payment_failed":
		return EventPaymentFailed
	default:
		return EventType(paddleEvent)
	}
}

