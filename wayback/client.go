// Package wayback provides a client for the Internet Archive Wayback Machine.
// It covers the CDX index (snapshot discovery) and the replay endpoint
// (fetching archived page content).
package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/waymcp/waymcp/errors"
	"github.com/waymcp/waymcp/logging"
)

// Wayback Machine endpoints.
const (
	CDXEndpoint = "https://web.archive.org/cdx/search/cdx"
	ReplayBase  = "https://web.archive.org/web"
)

// maxContentChars caps rendered page text so one tool result cannot swamp
// the caller's context.
const maxContentChars = 50000

// Client queries the Wayback Machine. It is safe for concurrent use.
type Client struct {
	http       *http.Client
	cdxURL     string
	replayBase string
	logger     *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP timeout (default 60s; archived pages can be slow).
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithProxy routes requests through an authenticated forward proxy. The
// archive has no authentication and rate-limits by IP, so a proxy pool
// spreads the load; APIs with keys would not need this.
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return
		}
		c.http.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
	}
}

// WithLogger sets the logger for upstream query events.
func WithLogger(l *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l.WithComponent("wayback")
	}
}

// WithEndpoints overrides the CDX and replay endpoints, for testing.
func WithEndpoints(cdxURL, replayBase string) ClientOption {
	return func(c *Client) {
		c.cdxURL = cdxURL
		c.replayBase = replayBase
	}
}

// NewClient creates a Wayback Machine client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		cdxURL:     CDXEndpoint,
		replayBase: ReplayBase,
		logger:     logging.New().WithComponent("wayback"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildProxyURL assembles an Oxylabs-style proxy URL from credentials.
// Returns "" when either credential is missing.
func BuildProxyURL(username, password string) string {
	if username == "" || password == "" {
		return ""
	}
	return fmt.Sprintf("http://%s:%s@pr.oxylabs.io:7777", username, password)
}

// cdx runs one CDX index query and returns the result rows keyed by the
// requested field names. A response with only the header row (or empty)
// yields nil rows and no error.
func (c *Client) cdx(ctx context.Context, params url.Values) ([]map[string]string, error) {
	reqURL := c.cdxURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building CDX request", errors.WithURL(reqURL))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeNetworkErr,
			"querying CDX index", errors.WithURL(reqURL))
	}
	defer resp.Body.Close()

	c.logger.UpstreamQuery("cdx", params.Get("url"), resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.ErrCodeUpstream,
			"CDX index returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeNetworkErr, "reading CDX response")
	}

	return parseCDX(body)
}

// parseCDX decodes the CDX JSON format: an array of string arrays where the
// first row names the fields and each following row is one capture.
func parseCDX(data []byte) ([]map[string]string, error) {
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeUpstream, "decoding CDX response")
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m := make(map[string]string, len(header))
		for i, field := range header {
			if i < len(row) {
				m[field] = row[i]
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// replayURL builds the replay endpoint URL for a capture.
func (c *Client) replayURL(timestamp, original string) string {
	return fmt.Sprintf("%s/%s/%s", c.replayBase, timestamp, original)
}
