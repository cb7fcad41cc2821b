// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lattice.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		path := writeConfig(t, `
relay:
  url: wss://relay.example.net/graph
log:
  level: debug
`)
		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}
		if cfg.Relay.URL != "wss://relay.example.net/graph" {
			t.Errorf("relay.url = %q", cfg.Relay.URL)
		}
		// Unset sections keep their defaults.
		if cfg.Identity.URL != Default().Identity.URL {
			t.Errorf("identity.url = %q, want default", cfg.Identity.URL)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("log.level = %q", cfg.Log.Level)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("loaded config should validate: %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "relay: [not a mapping")
		if _, err := LoadFile(path); err == nil {
			t.Error("expected error for malformed YAML")
		}
	})
}

func TestLoadRequiresEnv(t *testing.T) {
	t.Setenv("LATTICE_CONFIG", "")
	if _, err := Load(); err == nil {
		t.Error("Load without LATTICE_CONFIG should fail")
	}

	path := writeConfig(t, "log:\n  level: warn\n")
	t.Setenv("LATTICE_CONFIG", path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	for _, test := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty relay url", func(c *Config) { c.Relay.URL = "" }},
		{"http relay url", func(c *Config) { c.Relay.URL = "http://not-websocket" }},
		{"empty identity url", func(c *Config) { c.Identity.URL = "" }},
		{"ws identity url", func(c *Config) { c.Identity.URL = "ws://not-http" }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
	} {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
