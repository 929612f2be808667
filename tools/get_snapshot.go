package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/waymcp/waymcp/errors"
	"github.com/waymcp/waymcp/wayback"
)

const getSnapshotDescription = `Fetch the content of a webpage from the Internet Archive Wayback Machine at or before a specified date.

Finds the closest available snapshot before or on the target date and returns its content as readable text.
Automatically tries www/non-www variants and common extensions (.html, .htm, /).

Tip: If unsure whether a page is archived, first use webarchive_list_snapshots to see available dates,
then call this tool with a date from those results.

Note: Not all pages are archived, and archive frequency varies. The tool returns the closest available snapshot.`

// getSnapshotTool fetches archived page content at or before a target date.
type getSnapshotTool struct {
	client *wayback.Client
	now    func() time.Time
}

// NewGetSnapshot creates the webarchive_get_snapshot tool.
func NewGetSnapshot(client *wayback.Client) Tool {
	return &getSnapshotTool{client: client, now: time.Now}
}

func (t *getSnapshotTool) Name() string        { return "webarchive_get_snapshot" }
func (t *getSnapshotTool) Description() string { return getSnapshotDescription }

func (t *getSnapshotTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "The URL to fetch from the archive (e.g., 'example.com/page' or 'https://example.com/page')",
			},
			"target_date": map[string]interface{}{
				"type":        "string",
				"description": "Target date to find snapshot for, in YYYY-MM-DD format",
			},
		},
		"required": []string{"url", "target_date"},
	}
}

func (t *getSnapshotTool) Execute(ctx context.Context, rawArgs map[string]interface{}) (interface{}, error) {
	args := Args(rawArgs)

	rawURL, err := args.String("url")
	if err != nil {
		return nil, errors.InvalidInput(err.Error(), errors.WithTool(t.Name()))
	}
	targetDate, err := args.String("target_date")
	if err != nil {
		return nil, errors.InvalidInput(err.Error(), errors.WithTool(t.Name()))
	}
	if !wayback.ValidDate(targetDate) {
		return nil, errors.InvalidInput(
			fmt.Sprintf("invalid target_date format '%s', use YYYY-MM-DD", targetDate),
			errors.WithTool(t.Name()))
	}

	// cutoff_date is accepted but not advertised in the schema; backtesting
	// harnesses inject it to keep results inside their evaluation window.
	cutoff := args.StringOr("cutoff_date", t.now().Format("2006-01-02"))
	if wayback.ValidDate(cutoff) && targetDate > cutoff {
		targetDate = cutoff
	}

	pageURL := wayback.NormalizeURL(rawURL)
	variations := wayback.Variations(pageURL)

	var snapshot *wayback.Snapshot
	matched := pageURL
	for _, variant := range variations {
		snapshot, err = t.client.FindSnapshotBefore(ctx, variant, targetDate)
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			matched = variant
			break
		}
	}

	if snapshot == nil {
		diag, err := t.client.Diagnose(ctx, pageURL, targetDate)
		if err != nil {
			return nil, err
		}
		return formatNoSnapshot(pageURL, targetDate, variations, diag), nil
	}

	content, err := t.client.FetchRendered(ctx, snapshot.ArchiveURL)
	if err != nil {
		return nil, err
	}

	return fmt.Sprintf(`## Archived Snapshot
**Original URL:** %s
**Matched URL:** %s
**Snapshot Date:** %s
**Archive URL:** %s

---

%s`, pageURL, matched, snapshot.Date, snapshot.ArchiveURL, content), nil
}

// formatNoSnapshot renders the miss explanation. This is a normal result,
// not an error: the archive simply has nothing, and the hints guide the
// caller's next attempt.
func formatNoSnapshot(url, targetDate string, tried []string, diag *wayback.Diagnostics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "No archived snapshot found for '%s' at or before %s.\n\n", url, targetDate)
	fmt.Fprintf(&b, "**Tried URL variations:** %s\n\n", strings.Join(tried, ", "))

	if diag == nil {
		return b.String()
	}

	fmt.Fprintf(&b, "**Reason:** %s\n\n", titleCase(diag.Reason))
	if len(diag.Hints) > 0 {
		b.WriteString("**Hints:**\n")
		for _, hint := range diag.Hints {
			fmt.Fprintf(&b, "- %s\n", hint)
		}
	}
	if len(diag.SampleArchivedPaths) > 0 {
		fmt.Fprintf(&b, "\n**Archived paths on this domain (before %s):**\n", targetDate)
		paths := diag.SampleArchivedPaths
		if len(paths) > 8 {
			paths = paths[:8]
		}
		for _, p := range paths {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	return b.String()
}

// titleCase turns "domain_not_archived" into "Domain Not Archived".
func titleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
