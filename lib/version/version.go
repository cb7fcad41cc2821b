// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version of Lattice binaries.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is the release version, overridden at build time via
// -ldflags "-X github.com/lattice-chat/lattice/lib/version.Version=...".
// Development builds report "devel" plus the VCS revision when the
// module was built from a checkout.
var Version = "devel"

// String returns the version, including the VCS revision for
// development builds when available.
func String() string {
	if Version != "devel" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 12 {
				return "devel-" + setting.Value[:12]
			}
		}
	}
	return Version
}

// Print writes "<binary> <version>" to stdout. Used by the --version
// flag of every Lattice binary.
func Print(binary string) {
	fmt.Printf("%s %s\n", binary, String())
}
