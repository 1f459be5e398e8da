package entitlement

import (
	"time"

	"github.com/lunaria/entitlement/pkg/subscription"
)

// calendarMonth returns the UTC calendar month containing now as a
// half-open interval [first of month, first of next month).
func calendarMonth(now time.Time) (start, end time.Time) {
	now = now.UTC()
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}

// billingPeriod derives the window usage counts are taken over. The active
// subscription record's own period wins when it is fully specified; a nil
// record (free tier, lapsed subscription, degraded lookup) and a record
// without a period end both fall back to the calendar month.
func billingPeriod(rec *subscription.Record, now time.Time) (start, end time.Time) {
	if rec == nil || rec.PeriodEnd == nil || rec.PeriodStart.IsZero() {
		return calendarMonth(now)
	}
	return rec.PeriodStart.UTC(), rec.PeriodEnd.UTC()
}
