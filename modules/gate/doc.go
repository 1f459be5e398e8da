// Package gate exposes the entitlement engine over HTTP for the mobile
// backend: per-user entitlement snapshots, access checks, metered feature
// use, and the billing provider webhook.
//
// The module is a chi router meant to be mounted under a version prefix:
//
//	r.Mount("/v1", gate.Router(gate.RouterOptions{
//	    Service: svc,
//	    Syncer:  syncer,
//	}))
//
// Routes:
//
//	GET  /users/{userID}/entitlement
//	POST /users/{userID}/features/{feature}/check
//	POST /users/{userID}/features/{feature}/use
//	POST /billing/webhook              (only when a Syncer is configured)
//
// Webhook deliveries that fail signature verification return 400 so the
// provider stops redelivering; transient store failures return 500 so it
// retries.
package gate
