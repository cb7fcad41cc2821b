// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability.
//
// Production code injects [Real]; tests inject [Fake] and advance it
// deterministically. Message timestamps, reconnect backoff, and retry
// delays all flow through a Clock so that reconciliation tests never
// depend on the wall clock.
package clock
