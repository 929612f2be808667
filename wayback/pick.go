package wayback

import "time"

// Pick filters select a subset of snapshots from a listing.
const (
	PickClosestToEnd   = "closest_to_end"
	PickClosestToStart = "closest_to_start"
	PickClosestToDate  = "closest_to_date"
	PickMonthly        = "monthly"
	PickYearly         = "yearly"
)

// ValidPick reports whether pick names a known filter. Empty means no filter.
func ValidPick(pick string) bool {
	switch pick {
	case "", PickClosestToEnd, PickClosestToStart, PickClosestToDate, PickMonthly, PickYearly:
		return true
	}
	return false
}

// ApplyPick filters snapshots by the pick strategy. Snapshots are assumed
// sorted most-recent-first, as the CDX queries return them. Unknown picks
// and empty inputs pass through unchanged.
func ApplyPick(snapshots []Snapshot, pick, targetDate string) []Snapshot {
	if len(snapshots) == 0 || pick == "" {
		return snapshots
	}

	switch pick {
	case PickClosestToEnd:
		return snapshots[:1]

	case PickClosestToStart:
		return snapshots[len(snapshots)-1:]

	case PickClosestToDate:
		target, err := time.Parse("2006-01-02", targetDate)
		if err != nil {
			return snapshots[:1]
		}
		best := 0
		bestDelta := time.Duration(-1)
		for i, s := range snapshots {
			dt, err := time.Parse("2006-01-02", s.Date)
			if err != nil {
				continue
			}
			delta := dt.Sub(target)
			if delta < 0 {
				delta = -delta
			}
			if bestDelta < 0 || delta < bestDelta {
				best, bestDelta = i, delta
			}
		}
		return snapshots[best : best+1]

	case PickMonthly:
		return dedupeByPrefix(snapshots, 7) // YYYY-MM

	case PickYearly:
		return dedupeByPrefix(snapshots, 4) // YYYY
	}

	return snapshots
}

// dedupeByPrefix keeps the first snapshot seen for each date prefix.
func dedupeByPrefix(snapshots []Snapshot, prefixLen int) []Snapshot {
	seen := make(map[string]bool)
	var out []Snapshot
	for _, s := range snapshots {
		key := s.Date
		if len(key) > prefixLen {
			key = key[:prefixLen]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
