// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for sensitive data, in
// Lattice's case the account passphrase handed to the identity
// provider.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory is
// outside the Go heap, the garbage collector never copies or relocates
// it, so the secret cannot persist in stale heap copies.
//
// [ReadFromPath] loads a passphrase from a file or stdin ("-") directly
// into a Buffer, so the CLI never holds the passphrase in an ordinary
// heap string longer than the read itself.
package secret
