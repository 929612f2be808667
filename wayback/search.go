package wayback

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SearchQuery selects archived paths on a domain.
type SearchQuery struct {
	Domain      string
	PathPattern string // wildcard pattern, e.g. "*team*" or "/blog/*"
	Limit       int
	CutoffDate  string
}

// PathEntry is one unique archived path found on a domain.
type PathEntry struct {
	Path         string `json:"path"`
	FullURL      string `json:"full_url"`
	Host         string `json:"host"`
	LastCaptured string `json:"last_captured"`
	ArchiveURL   string `json:"archive_url"`
}

// SearchResult is the outcome of a domain search.
type SearchResult struct {
	Domain          string      `json:"domain"`
	DomainsSearched []string    `json:"domains_searched"`
	PathPattern     string      `json:"path_pattern,omitempty"`
	CutoffDate      string      `json:"cutoff_date,omitempty"`
	TotalFound      int         `json:"total_found"`
	Paths           []PathEntry `json:"paths"`
	Message         string      `json:"message,omitempty"`
	Hints           []string    `json:"hints,omitempty"`
}

// SearchSite lists unique archived paths on a domain matching a wildcard
// pattern, trying both www and non-www hosts and deduplicating by path.
func (c *Client) SearchSite(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	if q.Limit < 1 {
		q.Limit = 1
	} else if q.Limit > 100 {
		q.Limit = 100
	}

	domain := q.Domain
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		if parsed, err := url.Parse(domain); err == nil && parsed.Host != "" {
			domain = parsed.Host
		}
	}

	// A bare keyword pattern gets wildcards on both sides; an anchored
	// pattern (starting with * or /) is taken as written.
	pattern := q.PathPattern
	if pattern != "" {
		if !strings.HasPrefix(pattern, "*") && !strings.HasPrefix(pattern, "/") {
			pattern = "*" + pattern
		}
		if !strings.HasSuffix(pattern, "*") {
			pattern = pattern + "*"
		}
	}

	domainsToTry := []string{domain, AltHost(domain)}

	var results []PathEntry
	seenPaths := make(map[string]bool)

	for _, d := range domainsToTry {
		var queryURL string
		switch {
		case pattern == "":
			queryURL = d + "/*"
		case strings.HasPrefix(pattern, "/"):
			queryURL = d + pattern
		default:
			queryURL = d + "/" + pattern
		}

		params := url.Values{
			"url":      {queryURL},
			"output":   {"json"},
			"fl":       {"original,timestamp,statuscode"},
			"filter":   {"statuscode:200"},
			"collapse": {"urlkey"},
			"limit":    {strconv.Itoa(q.Limit * 3)}, // extra rows to survive dedup
		}
		if q.CutoffDate != "" {
			params.Set("to", CompactDate(q.CutoffDate))
		}

		rows, err := c.cdx(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}

		for _, row := range rows {
			original := row["original"]
			date := DateFromTimestamp(row["timestamp"])
			if afterCutoff(date, q.CutoffDate) {
				continue
			}

			origParsed, err := url.Parse(original)
			if err != nil {
				continue
			}
			path := origParsed.Path
			if path == "" {
				path = "/"
			}

			// Dedupe by path so host variants do not double-count.
			pathKey := strings.TrimRight(strings.ToLower(path), "/")
			if pathKey == "" {
				pathKey = "/"
			}
			if seenPaths[pathKey] {
				continue
			}
			seenPaths[pathKey] = true

			results = append(results, PathEntry{
				Path:         path,
				FullURL:      original,
				Host:         origParsed.Host,
				LastCaptured: date,
				ArchiveURL:   c.replayURL(row["timestamp"], original),
			})
			if len(results) >= q.Limit {
				break
			}
		}
		if len(results) >= q.Limit {
			break
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	if results == nil {
		results = []PathEntry{}
	}

	out := &SearchResult{
		Domain:          domain,
		DomainsSearched: domainsToTry,
		PathPattern:     pattern,
		CutoffDate:      q.CutoffDate,
		TotalFound:      len(results),
		Paths:           results,
	}

	if len(results) == 0 {
		msg := fmt.Sprintf("No archived pages found for domain '%s'", domain)
		if pattern != "" {
			msg += fmt.Sprintf(" matching pattern '%s'", pattern)
		}
		if q.CutoffDate != "" {
			msg += fmt.Sprintf(" before %s", q.CutoffDate)
		}
		out.Message = msg + "."
		out.Hints = []string{
			"Try a different domain variant (www vs non-www)",
			"Try a broader path pattern",
			"The site may not be well-archived in the Wayback Machine",
		}
	}

	return out, nil
}
