package wayback

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Diagnosis reasons.
const (
	ReasonDomainNotArchived = "domain_not_archived"
	ReasonPathNotArchived   = "path_not_archived"
)

// Diagnostics explains why a lookup found nothing and suggests alternatives.
type Diagnostics struct {
	Domain              string   `json:"domain"`
	Path                string   `json:"path"`
	DomainHasCaptures   bool     `json:"domain_has_captures"`
	SampleArchivedPaths []string `json:"sample_archived_paths"`
	Hints               []string `json:"hints"`
	Reason              string   `json:"reason"`
}

// Diagnose checks whether the URL's domain has any captures at all and
// collects up to ten sample archived paths, so a failed lookup can tell the
// caller whether the domain or just the path is missing. CDX failures here
// degrade to an empty diagnosis rather than an error; the diagnosis is a
// best-effort hint, not the answer.
func (c *Client) Diagnose(ctx context.Context, rawURL, cutoffDate string) (*Diagnostics, error) {
	parsed, err := url.Parse(NormalizeURL(rawURL))
	if err != nil {
		return nil, err
	}
	domain := parsed.Host
	path := parsed.Path

	diag := &Diagnostics{
		Domain:              domain,
		Path:                path,
		SampleArchivedPaths: []string{},
		Hints:               []string{},
		Reason:              "unknown",
	}

	params := url.Values{
		"url":      {domain + "/*"},
		"output":   {"json"},
		"fl":       {"original,timestamp"},
		"filter":   {"statuscode:200"},
		"collapse": {"urlkey"},
		"limit":    {"50"},
	}
	if cutoffDate != "" {
		params.Set("to", CompactDate(cutoffDate))
	}

	rows, err := c.cdx(ctx, params)
	if err != nil && ctx.Err() != nil {
		return nil, err
	}

	if len(rows) > 0 {
		diag.DomainHasCaptures = true
		seen := make(map[string]bool)
		for _, row := range rows {
			if afterCutoff(DateFromTimestamp(row["timestamp"]), cutoffDate) {
				continue
			}
			origParsed, err := url.Parse(row["original"])
			if err != nil {
				continue
			}
			origPath := origParsed.Path
			if origPath == "" {
				origPath = "/"
			}
			if seen[origPath] || len(seen) >= 10 {
				continue
			}
			seen[origPath] = true
			diag.SampleArchivedPaths = append(diag.SampleArchivedPaths, origPath)
		}
	}

	if !diag.DomainHasCaptures {
		diag.Reason = ReasonDomainNotArchived
		diag.Hints = append(diag.Hints,
			fmt.Sprintf("The domain '%s' has no captures in the Wayback Machine (or none before the cutoff date).", domain),
			fmt.Sprintf("Try the alternate host: %s", AltHost(domain)))
		return diag, nil
	}

	diag.Reason = ReasonPathNotArchived
	diag.Hints = append(diag.Hints,
		fmt.Sprintf("The specific path '%s' is not archived, but the domain has captures.", path))

	if path != "" && path != "/" {
		keywords := strings.FieldsFunc(strings.Trim(path, "/"), func(r rune) bool { return r == '/' })
		var matching []string
		for _, p := range diag.SampleArchivedPaths {
			for _, kw := range keywords {
				if strings.Contains(strings.ToLower(p), strings.ToLower(kw)) {
					matching = append(matching, p)
					break
				}
			}
		}
		if len(matching) > 5 {
			matching = matching[:5]
		}
		if len(matching) > 0 {
			diag.Hints = append(diag.Hints,
				fmt.Sprintf("Similar archived paths found: %s", strings.Join(matching, ", ")))
		} else {
			samples := diag.SampleArchivedPaths
			if len(samples) > 5 {
				samples = samples[:5]
			}
			diag.Hints = append(diag.Hints,
				fmt.Sprintf("Try one of these archived paths: %s", strings.Join(samples, ", ")))
		}
	}

	return diag, nil
}
