package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/waymcp/waymcp/errors"
	"github.com/waymcp/waymcp/wayback"
)

const searchSiteDescription = `Search for archived pages on a domain that match a path pattern.

Use this tool when:
- The target URL has no captures but you want to find related pages on the same domain
- You're looking for a page but don't know the exact path (e.g., "team" page could be /team, /about-us, /people)
- You want to discover what pages exist on a domain in the archive

Supports wildcard patterns (e.g., '*team*', '*about*', '/blog/*').
Searches both www and non-www variants automatically.

Returns a list of unique archived paths on the domain with their most recent snapshot dates.`

// searchSiteTool searches a domain's archived paths.
type searchSiteTool struct {
	client *wayback.Client
	now    func() time.Time
}

// NewSearchSite creates the webarchive_search_site tool.
func NewSearchSite(client *wayback.Client) Tool {
	return &searchSiteTool{client: client, now: time.Now}
}

func (t *searchSiteTool) Name() string        { return "webarchive_search_site" }
func (t *searchSiteTool) Description() string { return searchSiteDescription }

func (t *searchSiteTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"domain": map[string]interface{}{
				"type":        "string",
				"description": "Domain to search (e.g., 'example.com' or 'www.example.com')",
			},
			"path_pattern": map[string]interface{}{
				"type":        "string",
				"description": "Path pattern to match using wildcards (e.g., '*team*', '*about*', '/blog/*')",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of unique paths to return (default 30, max 100)",
			},
		},
		"required": []string{"domain"},
	}
}

func (t *searchSiteTool) Execute(ctx context.Context, rawArgs map[string]interface{}) (interface{}, error) {
	args := Args(rawArgs)

	domain, err := args.String("domain")
	if err != nil {
		return nil, errors.InvalidInput(err.Error(), errors.WithTool(t.Name()))
	}

	result, err := t.client.SearchSite(ctx, wayback.SearchQuery{
		Domain:      domain,
		PathPattern: args.StringOr("path_pattern", ""),
		Limit:       args.IntOr("limit", 30),
		CutoffDate:  args.StringOr("cutoff_date", t.now().Format("2006-01-02")),
	})
	if err != nil {
		return nil, err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeInternal, "encoding search result")
	}
	return string(out), nil
}
