// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity is the boundary to the external identity provider.
//
// The provider owns key generation, signing, and credential storage;
// Lattice only consumes the account lifecycle: [Provider.Create]
// registers an identity (without authenticating — the required
// registration flow is Create followed by Authenticate),
// [Provider.Authenticate] establishes a session, [Provider.Leave]
// terminates it, and [Provider.Current] exposes the live identity
// while authenticated.
//
// Two implementations exist. [RelayProvider] talks HTTP to an
// identity relay and is the production path. [Fake] is an in-memory
// provider for tests.
//
// Provider rejections are returned as [*AuthError] with the
// provider's reason code (alias taken, bad credentials, ...) and are
// meant to be surfaced to the user, never fatal to the process.
// [IsAuthError] tests for a specific code.
package identity
