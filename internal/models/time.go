package models

import "time"

// TimestampPrecision is the finest time resolution every remote backend stores.
const TimestampPrecision = time.Millisecond

// Timestamp normalizes t to UTC at TimestampPrecision, so cached values, remote values
// and page cursors compare equal.
func Timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(TimestampPrecision)
}
