// Package config loads server configuration from standard locations.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultInstructions describes the server to MCP clients that ask.
const DefaultInstructions = "Access historical webpage snapshots from the Internet Archive Wayback Machine. " +
	"This datasource provides archived versions of websites captured over time, allowing you to see how " +
	"webpages looked at specific points in the past. Useful for retrieving historical content, verifying " +
	"past information, and tracking changes to websites over time."

// Config holds server configuration loaded from webarchive.toml.
type Config struct {
	Server ServerConfig `toml:"server"`
	Slack  SlackConfig  `toml:"slack"`
	Proxy  ProxyConfig  `toml:"proxy"`
}

// ServerConfig identifies the server and its sidecar endpoints.
type ServerConfig struct {
	Name           string `toml:"name"`
	Instructions   string `toml:"instructions"`
	HTTPAddr       string `toml:"http_addr"`
	RateLimitsFile string `toml:"rate_limits_file"`
	LogLevel       string `toml:"log_level"`
}

// SlackConfig configures error notifications.
type SlackConfig struct {
	WebhookURL string `toml:"webhook_url"`
}

// ProxyConfig holds forward-proxy credentials. The archive rate-limits by
// IP, so a proxy pool spreads the load when configured.
type ProxyConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:           "webarchive",
			Instructions:   DefaultInstructions,
			HTTPAddr:       "localhost:8787",
			RateLimitsFile: "rate_limits.json",
			LogLevel:       "info",
		},
	}
}

// StandardPaths returns the configuration file locations in priority order.
func StandardPaths() []string {
	paths := []string{"webarchive.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "waymcp", "webarchive.toml"))
	}
	return paths
}

// Load reads configuration from the first standard location that exists,
// then applies environment overrides. A missing file is not an error; the
// defaults apply.
func Load() (*Config, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			cfg.applyEnv()
			return cfg, path, nil
		}
	}
	cfg := Default()
	cfg.applyEnv()
	return cfg, "", nil
}

// LoadFile reads configuration from a specific file. Fields absent from the
// file keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables on top of file values. Env wins so
// deployments can override without editing files.
func (c *Config) applyEnv() {
	if v := os.Getenv("WEBARCHIVE_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("WEBARCHIVE_RATE_LIMITS_FILE"); v != "" {
		c.Server.RateLimitsFile = v
	}
	if v := os.Getenv("WEBARCHIVE_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		c.Slack.WebhookURL = v
	}
	if v := os.Getenv("OXYLABS_USERNAME"); v != "" {
		c.Proxy.Username = v
	}
	if v := os.Getenv("OXYLABS_PASSWORD"); v != "" {
		c.Proxy.Password = v
	}
}
