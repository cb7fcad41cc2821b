// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the client configuration for Lattice.
type Config struct {
	// Relay configures the connection to the graph-store relay.
	Relay RelayConfig `yaml:"relay"`

	// Identity configures the connection to the identity provider.
	Identity IdentityConfig `yaml:"identity"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

// RelayConfig configures the graph-store relay connection.
type RelayConfig struct {
	// URL is the websocket endpoint of the graph-store relay
	// (e.g., "ws://localhost:8765/graph").
	URL string `yaml:"url"`
}

// IdentityConfig configures the identity provider connection.
type IdentityConfig struct {
	// URL is the HTTP base URL of the identity provider
	// (e.g., "http://localhost:8766").
	URL string `yaml:"url"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is the minimum slog level: "debug", "info", "warn", "error".
	// Default: info.
	Level string `yaml:"level"`
}

// Default returns the default configuration. These defaults exist so
// that every field has a sensible zero configuration for local
// development — the config file remains the source of truth.
func Default() *Config {
	return &Config{
		Relay:    RelayConfig{URL: "ws://localhost:8765/graph"},
		Identity: IdentityConfig{URL: "http://localhost:8766"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load loads configuration from the LATTICE_CONFIG environment
// variable. There are no fallbacks — if LATTICE_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("LATTICE_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("LATTICE_CONFIG environment variable not set; " +
			"set it to the path of your lattice.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging over
// the defaults. Environment variables do not override config values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := validateURL(c.Relay.URL, "ws", "wss"); err != nil {
		errs = append(errs, fmt.Errorf("relay.url: %w", err))
	}
	if err := validateURL(c.Identity.URL, "http", "https"); err != nil {
		errs = append(errs, fmt.Errorf("identity.url: %w", err))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error: %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme {
			return nil
		}
	}
	return fmt.Errorf("scheme must be one of %v: %q", schemes, raw)
}
