// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/lattice-chat/lattice/lib/ref"
	"github.com/lattice-chat/lattice/lib/secret"
)

// Fake is an in-memory Provider for tests. Accounts live for the
// lifetime of the Fake; public keys are derived deterministically from
// the alias so tests can predict room addresses.
//
// Fake is safe for concurrent use.
type Fake struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount
	current  Identity
}

type fakeAccount struct {
	secret   string
	identity Identity
}

// NewFake creates an empty fake provider.
func NewFake() *Fake {
	return &Fake{accounts: make(map[string]fakeAccount)}
}

// FakePublicKey returns the public key the Fake assigns to alias.
// Tests use this to compute expected room addresses without
// authenticating.
func FakePublicKey(alias string) ref.PublicKey {
	// Hex-encode so that any alias yields a valid key.
	key, err := ref.ParsePublicKey(fmt.Sprintf("PUB%X", alias))
	if err != nil {
		panic(fmt.Sprintf("identity: deriving fake key for %q: %v", alias, err))
	}
	return key
}

// Create registers a new account. Fails with ALIAS_TAKEN when the
// alias exists.
func (f *Fake) Create(ctx context.Context, alias string, secretValue *secret.Buffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if alias == "" {
		return &AuthError{Code: ErrCodeInvalidAlias, Message: "alias is required"}
	}
	if secretValue == nil {
		return fmt.Errorf("identity: secret is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.accounts[alias]; exists {
		return &AuthError{Code: ErrCodeAliasTaken, Message: fmt.Sprintf("alias %q already taken", alias)}
	}
	f.accounts[alias] = fakeAccount{
		secret:   secretValue.String(),
		identity: Identity{PublicKey: FakePublicKey(alias), Alias: alias},
	}
	return nil
}

// Authenticate establishes a session. Fails with BAD_CREDENTIALS for
// unknown aliases or wrong secrets.
func (f *Fake) Authenticate(ctx context.Context, alias string, secretValue *secret.Buffer) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	if secretValue == nil {
		return Identity{}, fmt.Errorf("identity: secret is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	account, exists := f.accounts[alias]
	if !exists || account.secret != secretValue.String() {
		return Identity{}, &AuthError{Code: ErrCodeBadCredentials, Message: "wrong alias or secret"}
	}
	f.current = account.identity
	return account.identity, nil
}

// Leave clears the current session.
func (f *Fake) Leave(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = Identity{}
	return nil
}

// Current returns the authenticated identity, if any.
func (f *Fake) Current() (Identity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, !f.current.IsZero()
}

// Compile-time check: *Fake implements Provider.
var _ Provider = (*Fake)(nil)
