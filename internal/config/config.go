// Package config loads galahad settings from defaults, a YAML file and the
// environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/me/galahad/internal/logging"
	"github.com/me/galahad/pkg/galaxy"
	"gopkg.in/yaml.v3"
)

// Config holds configuration for the galahad CLI and server.
type Config struct {
	Galaxy GalaxyConfig `yaml:"galaxy"`
	Server ServerConfig `yaml:"server"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`

	// Overrides is an optional YAML or JSON file of per-parameter overrides
	// applied to every compiled form.
	Overrides string `yaml:"overrides"`
}

// GalaxyConfig selects the Galaxy server.
type GalaxyConfig struct {
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	HistoryID  string        `yaml:"history_id"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// ServerConfig holds configuration for the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address (default ":8080")

	// CORSOrigins lists the browser origins allowed to call the API.
	// Empty disables CORS handling.
	CORSOrigins []string `yaml:"cors_origins"`
}

// CacheConfig controls the tool-schema cache.
type CacheConfig struct {
	Path     string        `yaml:"path"` // SQLite path; ":memory:" for an ephemeral cache
	TTL      time.Duration `yaml:"ttl"`
	Disabled bool          `yaml:"disabled"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Galaxy: GalaxyConfig{
			URL:        galaxy.DefaultURL,
			Timeout:    galaxy.DefaultTimeout,
			MaxRetries: galaxy.DefaultMaxRetries,
		},
		Server: ServerConfig{Addr: ":8080"},
		Cache: CacheConfig{
			Path: filepath.Join(homeDir(), ".galahad", "cache.db"),
			TTL:  24 * time.Hour,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultPath returns ~/.galahad/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".galahad", "config.yaml")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Load builds the configuration. An explicit path must exist; with an empty
// path the default file is read if present.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv overlays settings from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("GALAXY_URL"); v != "" {
		c.Galaxy.URL = v
	}
	if v := os.Getenv("GALAXY_API_KEY"); v != "" {
		c.Galaxy.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("GALAHAD_HISTORY"); v != "" {
		c.Galaxy.HistoryID = v
	}
	if v := os.Getenv("GALAHAD_CACHE"); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv("GALAHAD_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Galaxy.URL) == "" {
		errs = append(errs, errors.New("galaxy.url is required"))
	}
	if c.Galaxy.Timeout < 0 {
		errs = append(errs, errors.New("galaxy.timeout must not be negative"))
	}
	if c.Galaxy.MaxRetries < 0 {
		errs = append(errs, errors.New("galaxy.max_retries must not be negative"))
	}
	if !logging.ValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// GalaxyClient returns the client configuration for the selected server.
func (c Config) GalaxyClient() galaxy.Config {
	cfg := galaxy.DefaultConfig().WithURL(c.Galaxy.URL).WithAPIKey(c.Galaxy.APIKey)
	if c.Galaxy.Timeout > 0 {
		cfg = cfg.WithTimeout(c.Galaxy.Timeout)
	}
	return cfg.WithRetries(c.Galaxy.MaxRetries, cfg.RetryDelay)
}
