package tools

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/waymcp/waymcp/errors"
	"github.com/waymcp/waymcp/logging"
	"github.com/waymcp/waymcp/metrics"
	"github.com/waymcp/waymcp/ratelimit"
)

// Middleware wraps a tool with cross-cutting behavior.
type Middleware func(Tool) Tool

// Chain wraps a tool in middleware, first argument outermost.
func Chain(t Tool, mws ...Middleware) Tool {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// wrapped carries the inner tool's identity; only Execute changes.
type wrapped struct {
	Tool
}

// RateLimited gates tool execution through the limiter. Callers that exceed
// the bounded wait get a RATE_LIMITED error; cancellation passes through.
// This belongs outermost so a queued caller that gives up never runs the tool.
func RateLimited(limiter *ratelimit.Limiter, logger *logging.Logger, mtr *metrics.Metrics) Middleware {
	return func(next Tool) Tool {
		return &rateLimitedTool{wrapped{next}, limiter, logger, mtr}
	}
}

type rateLimitedTool struct {
	wrapped
	limiter *ratelimit.Limiter
	logger  *logging.Logger
	mtr     *metrics.Metrics
}

func (t *rateLimitedTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	start := time.Now()
	if err := t.limiter.Acquire(ctx, t.Name()); err != nil {
		var timeout *ratelimit.TimeoutError
		if stderrors.As(err, &timeout) {
			t.logger.RateLimitTimeout(t.Name(), timeout.MaxWait)
			if t.mtr != nil {
				t.mtr.RateLimitTimeout(t.Name())
			}
			return nil, errors.RateLimited(timeout.Error(),
				errors.WithTool(t.Name()),
				errors.WithMetadata("max_wait", timeout.MaxWait.String()),
				errors.WithCause(err))
		}
		return nil, errors.Wrap(err, "acquiring rate limit slot", errors.WithTool(t.Name()))
	}
	if t.mtr != nil {
		t.mtr.ObserveAcquireWait(time.Since(start))
	}
	return t.Tool.Execute(ctx, args)
}

// Instrumented logs and measures each execution.
func Instrumented(logger *logging.Logger, mtr *metrics.Metrics) Middleware {
	return func(next Tool) Tool {
		return &instrumentedTool{wrapped{next}, logger, mtr}
	}
}

type instrumentedTool struct {
	wrapped
	logger *logging.Logger
	mtr    *metrics.Metrics
}

func (t *instrumentedTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	t.logger.ToolCall(t.Name())
	start := time.Now()
	result, err := t.Tool.Execute(ctx, args)
	elapsed := time.Since(start)

	t.logger.ToolResult(t.Name(), elapsed, err)
	if t.mtr != nil {
		t.mtr.ObserveToolCall(t.Name(), elapsed, err)
	}
	return result, err
}

// ErrorNotifier receives tool failures. Implementations must not block.
type ErrorNotifier interface {
	NotifyError(tool string, err error, args map[string]interface{})
}

// NotifyOnError reports tool failures to a notifier and passes the error
// through unchanged. Innermost, so it sees the tool's own error before any
// other middleware rewrites it.
func NotifyOnError(n ErrorNotifier) Middleware {
	return func(next Tool) Tool {
		return &notifyTool{wrapped{next}, n}
	}
}

type notifyTool struct {
	wrapped
	notifier ErrorNotifier
}

func (t *notifyTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	result, err := t.Tool.Execute(ctx, args)
	if err != nil && t.notifier != nil {
		t.notifier.NotifyError(t.Name(), err, args)
	}
	return result, err
}
