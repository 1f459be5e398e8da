// Package tier provides the static subscription tier catalog: per-feature
// limits for one billing period plus human-readable feature lists.
//
// The catalog is pure data with no I/O after load, and it is the only place
// limit numbers live. Unknown tier IDs resolve to the free tier so stale
// subscription records fail safe.
//
// Basic usage:
//
//	catalog, err := tier.NewCatalog(ctx, tier.NewYAMLSource("config/tiers.yaml"))
//	if err != nil {
//	    return err
//	}
//
//	t := catalog.Get(tier.TierPremium)
//	limit, _ := t.Limit(usage.FeatureNumerology)
//
// For tests and defaults, NewInMemSource(tier.DefaultTiers()) provides the
// built-in catalog without any file on disk.
package tier
