package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)
	logger.SetLevel(LevelInfo)

	// Debug should be filtered
	logger.Debug("debug message")
	if buf.Len() > 0 {
		t.Error("debug message should be filtered at INFO level")
	}

	// Info should pass
	logger.Info("info message")
	if buf.Len() == 0 {
		t.Error("info message should be logged")
	}

	output := buf.String()
	if !strings.Contains(output, "INFO") {
		t.Error("log should contain INFO level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("log should contain the message")
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithComponent("ratelimit")
	logger.SetOutput(&buf)

	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "[ratelimit]") {
		t.Errorf("expected component 'ratelimit' in log, got: %s", output)
	}
}

func TestLogger_WithTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithTraceID("req-123")
	logger.SetOutput(&buf)

	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "trace=req-123") {
		t.Errorf("expected trace ID in log, got: %s", output)
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)

	logger.Info("tool call", map[string]interface{}{
		"tool": "webarchive_get_snapshot",
	})

	output := buf.String()
	if !strings.Contains(output, "tool=webarchive_get_snapshot") {
		t.Errorf("expected tool field in log, got: %s", output)
	}
}

func TestLogger_ToolResult(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)
	logger.SetLevel(LevelDebug)

	logger.ToolResult("webarchive_list_snapshots", 20*time.Millisecond, nil)

	output := buf.String()
	if !strings.Contains(output, "tool_result") {
		t.Errorf("expected tool_result event, got: %s", output)
	}
	if !strings.Contains(output, "duration=") {
		t.Errorf("expected duration field, got: %s", output)
	}
}

func TestLogger_ToolResult_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)

	logger.ToolResult("webarchive_get_snapshot", time.Millisecond, errTest)

	output := buf.String()
	if !strings.Contains(output, "ERROR") {
		t.Errorf("tool errors should log at ERROR level, got: %s", output)
	}
	if !strings.Contains(output, "tool_error") {
		t.Errorf("expected tool_error event, got: %s", output)
	}
}

func TestLogger_RateLimitTimeout(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)

	logger.RateLimitTimeout("webarchive_search_site", 2*time.Minute)

	output := buf.String()
	if !strings.Contains(output, "WARN") {
		t.Errorf("rate limit timeouts should log at WARN level, got: %s", output)
	}
	if !strings.Contains(output, "max_wait=2m0s") {
		t.Errorf("expected max_wait field, got: %s", output)
	}
}

func TestLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithComponent("test")
	logger.SetOutput(&buf)

	logger.Info("hello world", map[string]interface{}{"key": "value"})

	output := buf.String()
	// Format: LEVEL TIMESTAMP [component] message key=value
	if !strings.HasPrefix(output, "INFO ") {
		t.Errorf("expected line to start with 'INFO ', got: %s", output)
	}
	if !strings.Contains(output, "[test]") {
		t.Errorf("expected component [test], got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("expected key=value, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != LevelDebug {
		t.Error("expected debug")
	}
	if ParseLevel("WARNING") != LevelWarn {
		t.Error("expected warn")
	}
	if ParseLevel("") != LevelInfo {
		t.Error("expected info default")
	}
	if ParseLevel("nonsense") != LevelInfo {
		t.Error("expected info fallback")
	}
}

type testError struct{}

func (testError) Error() string { return "boom" }

var errTest = testError{}
