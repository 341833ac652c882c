// Package galaxy provides the Galaxy tool-schema data model and a small Go
// client for the parts of the Galaxy REST API that tool forms need.
package galaxy

import (
	"strings"
	"time"
)

// DefaultURL is the public usegalaxy.org server.
const DefaultURL = "https://usegalaxy.org"

// Default client settings.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 1 * time.Second
	DefaultPollInterval = 15 * time.Second
)

// Servers lists well-known public Galaxy instances by display name.
var Servers = map[string]string{
	"Galaxy Main":      "https://usegalaxy.org",
	"Galaxy Europe":    "https://usegalaxy.eu",
	"Galaxy Australia": "https://usegalaxy.org.au",
}

// Config holds all configuration for the Galaxy API client.
type Config struct {
	// URL is the base URL of the Galaxy server, without the /api suffix.
	URL string

	// APIKey is sent as the x-api-key header.
	APIKey string

	// Timeout is the HTTP client timeout for each request.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for failed requests.
	MaxRetries int

	// RetryDelay is the initial delay between retries (exponential backoff applied).
	RetryDelay time.Duration
}

// DefaultConfig returns a Config pointing at usegalaxy.org.
func DefaultConfig() Config {
	return Config{
		URL:        DefaultURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// WithURL returns a copy of the config targeting the given server.
func (c Config) WithURL(url string) Config {
	c.URL = strings.TrimRight(url, "/")
	return c
}

// WithAPIKey returns a copy of the config with the specified API key.
func (c Config) WithAPIKey(key string) Config {
	c.APIKey = key
	return c
}

// WithTimeout returns a copy of the config with the specified timeout.
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}

// WithRetries returns a copy of the config with the specified retry settings.
func (c Config) WithRetries(maxRetries int, retryDelay time.Duration) Config {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
	return c
}

// ServerName returns the host part of a Galaxy URL, used as the origin label
// for tools and datasets.
func ServerName(url string) string {
	name := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	return name
}
