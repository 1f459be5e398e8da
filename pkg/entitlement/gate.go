package entitlement

import "github.com/lunaria/entitlement/pkg/usage"

// DenyReason distinguishes "upgrade to continue" from "we couldn't verify,
// try again" for callers rendering the denial.
type DenyReason string

const (
	DenyQuotaExceeded    DenyReason = "quota_exceeded"
	DenyFeatureNotInTier DenyReason = "feature_not_in_tier"
	DenyDegraded         DenyReason = "degraded"
)

// Decision is the access gate's answer for one feature.
type Decision struct {
	Allowed   bool
	Remaining int64 // -1 if unlimited
	Reason    DenyReason
}

// Check decides whether a feature may be used under the given entitlement.
// Pure function, no I/O: all the data it needs is in the snapshot.
//
// A degraded snapshot always denies with DenyDegraded, whatever its usage
// numbers say, because the decision could not be verified against
// authoritative data. That keeps "couldn't verify your plan, retry" separate
// from "upgrade to continue" in user-facing messaging.
func Check(ent *Entitlement, feature usage.Feature) Decision {
	if ent == nil {
		return Decision{Allowed: false, Reason: DenyDegraded}
	}

	fu, metered := ent.Features[feature]

	if ent.Degraded {
		return Decision{Allowed: false, Remaining: fu.Remaining, Reason: DenyDegraded}
	}

	if !metered {
		return Decision{Allowed: false, Reason: DenyFeatureNotInTier}
	}

	if !fu.CanUse {
		return Decision{Allowed: false, Remaining: fu.Remaining, Reason: DenyQuotaExceeded}
	}

	return Decision{Allowed: true, Remaining: fu.Remaining}
}
