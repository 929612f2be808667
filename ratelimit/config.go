package ratelimit

import (
	"encoding/json"
	"os"
	"time"
)

// Config mirrors rate_limits.json.
type Config struct {
	// MaxRequestsPerSecond is the global budget across all tools.
	MaxRequestsPerSecond int `json:"max_requests_per_second"`

	// MaxWaitSeconds bounds how long one Acquire may block before failing
	// with a TimeoutError.
	MaxWaitSeconds float64 `json:"max_wait_seconds"`

	// Tools holds per-tool overrides, keyed by tool name.
	Tools map[string]ToolLimit `json:"tools"`
}

// ToolLimit overrides the global budget for a single tool.
type ToolLimit struct {
	// MaxRequestsPerSecond replaces the global budget for this tool.
	// Zero means inherit the global value.
	MaxRequestsPerSecond int `json:"max_requests_per_second"`
}

// DefaultConfig returns the built-in limits used when no config file exists.
func DefaultConfig() Config {
	return Config{
		MaxRequestsPerSecond: 10,
		MaxWaitSeconds:       120,
	}
}

// LoadConfig reads limits from a JSON file. A missing, unreadable, or
// malformed file falls back to DefaultConfig; configuration can never fail
// limiter construction.
func LoadConfig(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig()
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig()
	}
	if cfg.MaxRequestsPerSecond < 1 {
		cfg.MaxRequestsPerSecond = DefaultConfig().MaxRequestsPerSecond
	}
	if cfg.MaxWaitSeconds <= 0 {
		cfg.MaxWaitSeconds = DefaultConfig().MaxWaitSeconds
	}
	return cfg
}

// toolLimit returns the budget for one tool, falling back to the global one.
func (c Config) toolLimit(tool string) int {
	if t, ok := c.Tools[tool]; ok && t.MaxRequestsPerSecond > 0 {
		return t.MaxRequestsPerSecond
	}
	return c.MaxRequestsPerSecond
}

// maxWait returns MaxWaitSeconds as a duration.
func (c Config) maxWait() time.Duration {
	return time.Duration(c.MaxWaitSeconds * float64(time.Second))
}
