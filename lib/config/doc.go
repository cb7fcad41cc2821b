// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the Lattice client.
//
// Configuration is loaded from a single YAML file specified by:
//   - LATTICE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
package config
