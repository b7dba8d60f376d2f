package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Resolved event date ranges rarely change once the event is over
	TTLEventPeriod = 30 * 24 * time.Hour // 30 days

	// Price history for windows that ended in the past is effectively immutable
	TTLClosedPriceHistory = 7 * 24 * time.Hour // 7 days

	// Windows that include today keep moving
	TTLOpenPriceHistory = 10 * time.Minute
)

// PriceHistoryTTL picks the TTL for a price window ending at end.
// A zero end means a rolling period ("1y", "max", ...) which always includes today.
func PriceHistoryTTL(end, now time.Time) time.Duration {
	if !end.IsZero() && end.Before(now.AddDate(0, 0, -1)) {
		return TTLClosedPriceHistory
	}
	return TTLOpenPriceHistory
}
