package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultIndexURL is where the package list is fetched from when neither the
// config nor the package list itself names another location.
const DefaultIndexURL = "https://raw.githubusercontent.com/ravendevteam/toolbox/main/packages.json"

// Config holds all Toolbox configuration.
type Config struct {
	// Package index source
	Index IndexConfig `yaml:"index"`

	// Filesystem layout overrides
	Paths PathsConfig `yaml:"paths"`

	// HTTP behavior for index and artifact downloads
	Network NetworkConfig `yaml:"network"`

	// Install behavior
	Install InstallConfig `yaml:"install"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// IndexConfig configures where the package list comes from.
type IndexConfig struct {
	URL string `yaml:"url"`
}

// PathsConfig overrides the platform data root.
type PathsConfig struct {
	Root string `yaml:"root"` // empty = platform default
}

// InstallConfig configures the installer.
type InstallConfig struct {
	// Parallel downloads when installing every package with confirmations skipped
	Concurrency int `yaml:"concurrency"`

	// Create desktop shortcuts for packages that ask for one
	Shortcuts bool `yaml:"shortcuts"`

	// Journal operations to history.db
	History bool `yaml:"history"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			URL: DefaultIndexURL,
		},
		Network: NetworkConfig{
			Timeout:   "5m",
			Retries:   3,
			UserAgent: "toolbox-package-manager",
		},
		Install: InstallConfig{
			Concurrency: 2,
			Shortcuts:   true,
			History:     true,
		},
		Logging: LoggingConfig{
			Level:     "info",
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults still take environment overrides
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if root := os.Getenv("TOOLBOX_HOME"); root != "" {
		c.Paths.Root = root
	}
	if u := os.Getenv("TOOLBOX_INDEX_URL"); u != "" {
		c.Index.URL = u
	}
	if v := os.Getenv("TOOLBOX_DEBUG"); v != "" {
		c.Logging.DebugMode = v == "1" || strings.EqualFold(v, "true")
		if c.Logging.DebugMode {
			c.Logging.Level = "debug"
		}
	}

	// Proxies fall through to the standard variables only when the config
	// file left them empty.
	if c.Network.HTTPProxy == "" {
		c.Network.HTTPProxy = firstEnv("HTTP_PROXY", "http_proxy")
	}
	if c.Network.HTTPSProxy == "" {
		c.Network.HTTPSProxy = firstEnv("HTTPS_PROXY", "https_proxy")
	}
	if c.Network.NoProxy == "" {
		c.Network.NoProxy = firstEnv("NO_PROXY", "no_proxy")
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// GetTimeout returns the network timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Network.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// GetConcurrency returns the install concurrency, never below one.
func (c *Config) GetConcurrency() int {
	if c.Install.Concurrency < 1 {
		return 1
	}
	return c.Install.Concurrency
}

// ValidLogLevels lists the accepted logging.level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Index.URL == "" {
		return fmt.Errorf("index url not configured (set index.url or TOOLBOX_INDEX_URL)")
	}
	u, err := url.Parse(c.Index.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid index url: %q", c.Index.URL)
	}

	if c.Network.Retries < 0 {
		return fmt.Errorf("network.retries must be >= 0")
	}
	if c.Network.Timeout != "" {
		if _, err := time.ParseDuration(c.Network.Timeout); err != nil {
			return fmt.Errorf("invalid network.timeout %q: %w", c.Network.Timeout, err)
		}
	}

	return c.Logging.validate()
}
