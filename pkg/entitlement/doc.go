// Package entitlement decides, for every gated action a user takes, whether
// the action is permitted under their current plan and how many uses remain
// this billing period. It reconciles three independent sources — the
// replicated subscription record, the append-only usage log, and the static
// tier catalog — into one consistent decision, and stays answerable when any
// source is unreachable.
//
// Components:
//
//   - Resolver: combines the three sources into an Entitlement snapshot.
//     Unreachable subscription store degrades to free-tier defaults;
//     unreachable usage store fails closed (no feature usable).
//   - Check: the pure access gate over a snapshot, distinguishing
//     quota_exceeded ("upgrade to continue") from degraded ("we couldn't
//     verify, retry").
//   - Recorder: appends one usage event per approved action, idempotently,
//     and invalidates the cache for that user.
//   - Cache: short-TTL single-flight cache over the Resolver, so rapid taps
//     and background refreshes share one resolve per user.
//   - Service: the consumer-facing CheckAccess / UseFeature / GetEntitlement
//     surface.
//
// Wiring:
//
//	catalog, _ := tier.NewCatalog(ctx, tier.NewInMemSource(tier.DefaultTiers()))
//	resolver := entitlement.NewResolver(recordStore, usageStore, catalog)
//	cache := entitlement.NewCache(resolver)
//	recorder := entitlement.NewRecorder(usageStore, entitlement.WithInvalidator(cache))
//	svc := entitlement.NewService(cache, recorder)
//
//	d, err := svc.CheckAccess(ctx, userID, usage.FeatureNumerology)
//	if d.Allowed {
//	    d, err = svc.UseFeature(ctx, userID, usage.FeatureNumerology,
//	        entitlement.WithIdempotencyKey(requestID))
//	}
//
// Quota counting never relies on a client-held counter: the authoritative
// count is always a window query over the usage log, which avoids
// read-modify-write races. The one remaining race — two approved actions
// recording concurrently — can overshoot a limit by the number of in-flight
// requests, a deliberate availability-over-exactness tradeoff.
package entitlement
