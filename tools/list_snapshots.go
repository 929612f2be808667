package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/waymcp/waymcp/errors"
	"github.com/waymcp/waymcp/wayback"
)

const listSnapshotsDescription = `List available snapshots for a URL within a date range from the Internet Archive Wayback Machine.

Discover what archived versions of a webpage exist before fetching specific content.

Workflow:
1. Call webarchive_list_snapshots to see what dates have archived versions
2. Pick a date from the results
3. Call webarchive_get_snapshot with that date as target_date to fetch the content

Supports multi-year queries via the 'years' parameter and snapshot selection via 'pick':
- closest_to_end: Most recent snapshot in range
- closest_to_start: Oldest snapshot in range
- closest_to_date: Closest to a specific target_date
- monthly: One snapshot per month
- yearly: One snapshot per year

Returns a list of available snapshot dates with their archive URLs.`

// listSnapshotsTool lists archive captures for a URL.
type listSnapshotsTool struct {
	client *wayback.Client
	now    func() time.Time
}

// NewListSnapshots creates the webarchive_list_snapshots tool.
func NewListSnapshots(client *wayback.Client) Tool {
	return &listSnapshotsTool{client: client, now: time.Now}
}

func (t *listSnapshotsTool) Name() string        { return "webarchive_list_snapshots" }
func (t *listSnapshotsTool) Description() string { return listSnapshotsDescription }

func (t *listSnapshotsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "The URL to check for snapshots (e.g., 'example.com' or 'https://example.com/page')",
			},
			"start_date": map[string]interface{}{
				"type":        "string",
				"description": "Start of date range in YYYY-MM-DD format (optional)",
			},
			"end_date": map[string]interface{}{
				"type":        "string",
				"description": "End of date range in YYYY-MM-DD format (optional)",
			},
			"years": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "integer"},
				"description": "List of years to query (e.g., [2022, 2023, 2024]). Overrides start_date/end_date.",
			},
			"pick": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"closest_to_end", "closest_to_start", "closest_to_date", "monthly", "yearly"},
				"description": "Snapshot selection strategy",
			},
			"target_date": map[string]interface{}{
				"type":        "string",
				"description": "Target date for 'closest_to_date' pick option (YYYY-MM-DD)",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of snapshots to return (default 20, max 50)",
			},
		},
		"required": []string{"url"},
	}
}

func (t *listSnapshotsTool) Execute(ctx context.Context, rawArgs map[string]interface{}) (interface{}, error) {
	args := Args(rawArgs)

	rawURL, err := args.String("url")
	if err != nil {
		return nil, errors.InvalidInput(err.Error(), errors.WithTool(t.Name()))
	}

	pick := args.StringOr("pick", "")
	if !wayback.ValidPick(pick) {
		return nil, errors.InvalidInput(
			fmt.Sprintf("unknown pick '%s'", pick), errors.WithTool(t.Name()))
	}
	for _, field := range []string{"start_date", "end_date", "target_date"} {
		if v := args.StringOr(field, ""); v != "" && !wayback.ValidDate(v) {
			return nil, errors.InvalidInput(
				fmt.Sprintf("invalid %s format '%s', use YYYY-MM-DD", field, v),
				errors.WithTool(t.Name()))
		}
	}

	result, err := t.client.ListSnapshots(ctx, wayback.ListQuery{
		URL:        rawURL,
		StartDate:  args.StringOr("start_date", ""),
		EndDate:    args.StringOr("end_date", ""),
		Years:      args.IntSliceOr("years", nil),
		Pick:       pick,
		TargetDate: args.StringOr("target_date", ""),
		Limit:      args.IntOr("limit", 20),
		CutoffDate: args.StringOr("cutoff_date", t.now().Format("2006-01-02")),
	})
	if err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInternal, "encoding listing")
	}
	return string(out), nil
}
