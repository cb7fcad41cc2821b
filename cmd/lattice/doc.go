// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// lattice is the command-line client for the Lattice chat network.
//
// Each subcommand authenticates against the identity provider, runs
// one operation through a live chat client, and leaves the identity
// session. Configuration comes from a YAML file named by the
// LATTICE_CONFIG environment variable or the --config flag.
//
// Usage:
//
//	lattice register --alias bob --password-file -
//	lattice send --alias bob --password-file pw.txt "hello everyone"
//	lattice send --alias bob --password-file pw.txt --to PUBALICE "hi"
//	lattice friends --alias bob --password-file pw.txt
//	lattice add-friend --alias bob --password-file pw.txt PUBALICE alice
//	lattice whoami --alias bob --password-file pw.txt
//	lattice watch --alias bob --password-file pw.txt
package main
