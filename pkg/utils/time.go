package utils

import "time"

// NowRFC3339 returns the current UTC time in RFC3339Nano format.
// Timestamps are persisted in this format so that lexicographic
// comparison matches chronological comparison.
func NowRFC3339() string {
	return FormatRFC3339(time.Now())
}

// FormatRFC3339 formats a time in UTC RFC3339Nano
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseRFC3339 parses a persisted RFC3339Nano timestamp
func ParseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
