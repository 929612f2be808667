package wayback

import (
	"strings"
	"time"
)

// DateFromTimestamp converts a Wayback timestamp (YYYYMMDDHHMMSS) to
// YYYY-MM-DD. Timestamps too short to carry a date are returned unchanged.
func DateFromTimestamp(ts string) string {
	if len(ts) < 8 {
		return ts
	}
	return ts[:4] + "-" + ts[4:6] + "-" + ts[6:8]
}

// CompactDate converts YYYY-MM-DD to the YYYYMMDD form the CDX API expects.
func CompactDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

// ValidDate reports whether date is a well-formed YYYY-MM-DD string.
func ValidDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

// afterCutoff reports whether date falls after cutoff. Both are YYYY-MM-DD,
// so lexical comparison is date comparison. A cutoff that is empty or
// malformed never excludes anything.
func afterCutoff(date, cutoff string) bool {
	if cutoff == "" || !ValidDate(cutoff) {
		return false
	}
	return date > cutoff
}

// minDate returns the earlier of two YYYY-MM-DD dates.
func minDate(a, b string) string {
	if a < b {
		return a
	}
	return b
}
