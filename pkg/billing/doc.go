// Package billing consumes subscription lifecycle webhooks from the billing
// provider and replicates them into the local subscription record store.
//
// Checkout and the customer portal live in the hosted web billing flow and
// are out of scope here; this package is the read path's write side — the
// only component that mutates subscription records. After every applied
// event it invalidates the user's cached entitlement so plan changes take
// effect on the next gating decision.
//
//	provider, err := billing.NewPaddleProvider(billing.PaddleConfig{WebhookSecret: secret})
//	syncer := billing.NewSyncer(provider, recordStore,
//	    billing.WithRecordInvalidator(entCache))
//
//	// in the webhook HTTP handler:
//	err = syncer.HandleWebhook(ctx, payload, r.Header.Get("Paddle-Signature"))
package billing
