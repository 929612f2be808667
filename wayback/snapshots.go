package wayback

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// Snapshot is one archived capture of a URL.
type Snapshot struct {
	Date       string `json:"date"`
	Timestamp  string `json:"timestamp"`
	ArchiveURL string `json:"archive_url"`
	Year       int    `json:"year,omitempty"`
}

// DateRange bounds a snapshot listing.
type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// FindSnapshotBefore returns the most recent 200-status capture of rawURL at
// or before targetDate (YYYY-MM-DD). It queries the exact URL given; callers
// wanting variant fallback iterate over Variations themselves. Returns
// (nil, nil) when the archive has no matching capture.
func (c *Client) FindSnapshotBefore(ctx context.Context, rawURL, targetDate string) (*Snapshot, error) {
	params := url.Values{
		"url":    {rawURL},
		"output": {"json"},
		"fl":     {"timestamp,original,statuscode"},
		"filter": {"statuscode:200"},
		"to":     {CompactDate(targetDate)},
		"limit":  {"1"},
		"sort":   {"reverse"},
	}

	rows, err := c.cdx(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ts := rows[0]["timestamp"]
	original := rows[0]["original"]
	if original == "" {
		original = rawURL
	}
	return &Snapshot{
		Date:       DateFromTimestamp(ts),
		Timestamp:  ts,
		ArchiveURL: c.replayURL(ts, original),
	}, nil
}

// ListQuery selects snapshots for ListSnapshots.
type ListQuery struct {
	URL        string
	StartDate  string // YYYY-MM-DD, optional
	EndDate    string // YYYY-MM-DD, optional
	Years      []int  // overrides StartDate/EndDate when set
	Pick       string
	TargetDate string // for PickClosestToDate
	Limit      int
	CutoffDate string // upper bound on capture dates, optional
}

// ListResult is the outcome of a snapshot listing.
type ListResult struct {
	URL             string             `json:"url"`
	MatchedURL      string             `json:"matched_url,omitempty"`
	YearsQueried    []int              `json:"years_queried,omitempty"`
	TotalFound      int                `json:"total_found"`
	DateRange       *DateRange         `json:"date_range,omitempty"`
	SnapshotsByYear map[int][]Snapshot `json:"snapshots_by_year,omitempty"`
	Snapshots       []Snapshot         `json:"snapshots"`
	TriedVariations []string           `json:"tried_variations,omitempty"`
	Diagnostics     *Diagnostics       `json:"diagnostics,omitempty"`
}

// ListSnapshots lists captures of a URL, trying URL variations until one has
// results. With Years set it queries each year separately and groups the
// output by year; otherwise it queries the StartDate..EndDate range. The
// cutoff date caps every date bound and filters returned captures.
func (c *Client) ListSnapshots(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.Limit < 1 {
		q.Limit = 1
	} else if q.Limit > 50 {
		q.Limit = 50
	}

	q.URL = NormalizeURL(q.URL)

	if len(q.Years) > 0 {
		return c.listByYears(ctx, q)
	}
	return c.listRange(ctx, q)
}

func (c *Client) listRange(ctx context.Context, q ListQuery) (*ListResult, error) {
	endDate := q.EndDate
	if q.CutoffDate != "" {
		if endDate == "" {
			endDate = q.CutoffDate
		} else {
			endDate = minDate(endDate, q.CutoffDate)
		}
	}
	targetDate := q.TargetDate
	if targetDate != "" && q.CutoffDate != "" && targetDate > q.CutoffDate {
		targetDate = q.CutoffDate
	}

	variations := Variations(q.URL)
	var rows []map[string]string
	matched := q.URL

	for _, variant := range variations {
		params := url.Values{
			"url":      {variant},
			"output":   {"json"},
			"fl":       {"timestamp,original,statuscode"},
			"filter":   {"statuscode:200"},
			"collapse": {"timestamp:8"},
			"limit":    {strconv.Itoa(q.Limit * 2)},
			"sort":     {"reverse"},
		}
		if q.StartDate != "" {
			params.Set("from", CompactDate(q.StartDate))
		}
		if endDate != "" {
			params.Set("to", CompactDate(endDate))
		}

		variantRows, err := c.cdx(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			continue // a failing variant is not fatal, try the next
		}
		if len(variantRows) > 0 {
			rows = variantRows
			matched = variant
			break
		}
	}

	if len(rows) == 0 {
		diag, err := c.Diagnose(ctx, q.URL, endDate)
		if err != nil && ctx.Err() != nil {
			return nil, err
		}
		return &ListResult{
			URL:             q.URL,
			TriedVariations: variations,
			Snapshots:       []Snapshot{},
			Diagnostics:     diag,
		}, nil
	}

	var snapshots []Snapshot
	for _, row := range rows {
		ts := row["timestamp"]
		date := DateFromTimestamp(ts)
		if afterCutoff(date, q.CutoffDate) {
			continue
		}
		original := row["original"]
		if original == "" {
			original = matched
		}
		snapshots = append(snapshots, Snapshot{
			Date:       date,
			Timestamp:  ts,
			ArchiveURL: c.replayURL(ts, original),
		})
	}

	snapshots = ApplyPick(snapshots, q.Pick, targetDate)
	if len(snapshots) > q.Limit {
		snapshots = snapshots[:q.Limit]
	}
	if snapshots == nil {
		snapshots = []Snapshot{}
	}

	return &ListResult{
		URL:        q.URL,
		MatchedURL: matched,
		TotalFound: len(snapshots),
		DateRange:  &DateRange{Start: q.StartDate, End: endDate},
		Snapshots:  snapshots,
	}, nil
}

func (c *Client) listByYears(ctx context.Context, q ListQuery) (*ListResult, error) {
	cutoffYear := 0
	if q.CutoffDate != "" && ValidDate(q.CutoffDate) {
		cutoffYear, _ = strconv.Atoi(q.CutoffDate[:4])
	}

	yearSet := make(map[int]bool)
	var years []int
	for _, y := range q.Years {
		if yearSet[y] {
			continue
		}
		if cutoffYear > 0 && y > cutoffYear {
			continue
		}
		yearSet[y] = true
		years = append(years, y)
	}
	sort.Ints(years)

	variations := Variations(q.URL)
	matched := q.URL
	var all []Snapshot

	for _, year := range years {
		yearStart := fmt.Sprintf("%d-01-01", year)
		yearEnd := fmt.Sprintf("%d-12-31", year)
		if cutoffYear == year {
			yearEnd = q.CutoffDate
		}

		for _, variant := range variations {
			params := url.Values{
				"url":      {variant},
				"output":   {"json"},
				"fl":       {"timestamp,original,statuscode"},
				"filter":   {"statuscode:200"},
				"collapse": {"timestamp:8"},
				"limit":    {"20"},
				"sort":     {"reverse"},
				"from":     {CompactDate(yearStart)},
				"to":       {CompactDate(yearEnd)},
			}

			rows, err := c.cdx(ctx, params)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				continue
			}
			if len(rows) == 0 {
				continue
			}

			matched = variant
			for _, row := range rows {
				ts := row["timestamp"]
				date := DateFromTimestamp(ts)
				if afterCutoff(date, q.CutoffDate) {
					continue
				}
				original := row["original"]
				if original == "" {
					original = matched
				}
				all = append(all, Snapshot{
					Date:       date,
					Timestamp:  ts,
					ArchiveURL: c.replayURL(ts, original),
					Year:       year,
				})
			}
			break
		}
	}

	if len(all) == 0 {
		diag, err := c.Diagnose(ctx, q.URL, q.CutoffDate)
		if err != nil && ctx.Err() != nil {
			return nil, err
		}
		return &ListResult{
			URL:          q.URL,
			YearsQueried: years,
			Snapshots:    []Snapshot{},
			Diagnostics:  diag,
		}, nil
	}

	all = ApplyPick(all, q.Pick, q.TargetDate)

	byYear := make(map[int][]Snapshot)
	for _, s := range all {
		byYear[s.Year] = append(byYear[s.Year], s)
	}

	limited := all
	if len(limited) > q.Limit {
		limited = limited[:q.Limit]
	}

	return &ListResult{
		URL:             q.URL,
		MatchedURL:      matched,
		YearsQueried:    years,
		TotalFound:      len(all),
		SnapshotsByYear: byYear,
		Snapshots:       limited,
	}, nil
}
