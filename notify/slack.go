// Package notify sends error notifications to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/waymcp/waymcp/logging"
)

// Notifier posts tool failures to Slack. Delivery is fire-and-forget: a
// failed or throttled notification never affects the tool response.
type Notifier struct {
	webhookURL string
	serverName string
	http       *http.Client
	limiter    *rate.Limiter
	logger     *logging.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithHTTPClient overrides the HTTP client, for testing.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.http = c }
}

// WithLogger sets the logger for delivery failures.
func WithLogger(l *logging.Logger) Option {
	return func(n *Notifier) { n.logger = l.WithComponent("notify") }
}

// WithRate overrides the notification rate limit, for testing.
func WithRate(r rate.Limit, burst int) Option {
	return func(n *Notifier) { n.limiter = rate.NewLimiter(r, burst) }
}

// New creates a Notifier. An empty webhookURL yields a no-op notifier, so
// callers need no nil checks when Slack is unconfigured. Notifications are
// throttled to one per 10 seconds with a small burst; a failing archive
// would otherwise flood the channel with one message per call.
func New(webhookURL, serverName string, opts ...Option) *Notifier {
	n := &Notifier{
		webhookURL: webhookURL,
		serverName: serverName,
		http:       &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(10*time.Second), 3),
		logger:     logging.New().WithComponent("notify"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// block is one element of a Slack Block Kit message.
type block struct {
	Type   string       `json:"type"`
	Text   *blockText   `json:"text,omitempty"`
	Fields []*blockText `json:"fields,omitempty"`
}

type blockText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// NotifyError posts a tool failure to the webhook. Implements
// tools.ErrorNotifier. Returns immediately; the post happens in the
// background and errors are logged, never surfaced.
func (n *Notifier) NotifyError(tool string, toolErr error, args map[string]interface{}) {
	if n.webhookURL == "" || toolErr == nil {
		return
	}
	if !n.limiter.Allow() {
		n.logger.Debug("notification throttled", map[string]interface{}{"tool": tool})
		return
	}

	payload := n.buildPayload(tool, toolErr, args)
	go n.post(payload)
}

func (n *Notifier) buildPayload(tool string, toolErr error, args map[string]interface{}) []byte {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		argsJSON = []byte(fmt.Sprintf("%v", args))
	}

	msg := map[string]interface{}{
		"text": fmt.Sprintf("MCP Tool Error in `%s`", n.serverName),
		"blocks": []block{
			{
				Type: "header",
				Text: &blockText{Type: "plain_text", Text: "MCP Tool Error", Emoji: true},
			},
			{
				Type: "section",
				Fields: []*blockText{
					{Type: "mrkdwn", Text: fmt.Sprintf("*MCP Server:*\n%s", n.serverName)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Tool:*\n%s", tool)},
				},
			},
			{
				Type: "section",
				Text: &blockText{Type: "mrkdwn", Text: fmt.Sprintf("*Args:*\n```%s```", clip(string(argsJSON), 300))},
			},
			{
				Type: "section",
				Text: &blockText{Type: "mrkdwn", Text: fmt.Sprintf("*Error:*\n```%s```", clip(toolErr.Error(), 500))},
			},
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil
	}
	return data
}

func (n *Notifier) post(payload []byte) {
	if payload == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		n.logger.Warn("building slack request failed", map[string]interface{}{"error": err.Error()})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		n.logger.Warn("slack notification failed", map[string]interface{}{"error": err.Error()})
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("slack webhook rejected notification", map[string]interface{}{"status": resp.StatusCode})
	}
}

// clip bounds a string for inclusion in a Slack block.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
