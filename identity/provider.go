// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"

	"github.com/lattice-chat/lattice/lib/ref"
	"github.com/lattice-chat/lattice/lib/secret"
)

// Identity is the public half of an authenticated account: the
// provider-assigned public key and the human-readable alias chosen at
// registration.
type Identity struct {
	PublicKey ref.PublicKey
	Alias     string
}

// IsZero reports whether the Identity is the zero value.
func (i Identity) IsZero() bool { return i.PublicKey.IsZero() }

// Provider is the consumed interface of the external identity
// provider.
//
// At most one identity is authenticated per Provider at a time.
// Create does not authenticate; the registration flow is Create
// followed by Authenticate.
type Provider interface {
	// Create registers a new identity under alias. The secret Buffer
	// is read but not closed — the caller retains ownership. Returns
	// *AuthError when the provider rejects the registration (e.g.,
	// alias already taken).
	Create(ctx context.Context, alias string, secretValue *secret.Buffer) error

	// Authenticate establishes a session for alias and returns its
	// identity. Returns *AuthError on bad credentials or provider
	// failure.
	Authenticate(ctx context.Context, alias string, secretValue *secret.Buffer) (Identity, error)

	// Leave terminates the provider-side session. Best effort: the
	// local session is gone regardless of the returned error.
	Leave(ctx context.Context) error

	// Current returns the authenticated identity, or ok=false when no
	// session is live. A restored session (e.g., a provider that
	// persists credentials across restarts) surfaces here without a
	// preceding Authenticate call.
	Current() (Identity, bool)
}
