// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// PublicKey is a validated public-key identity string from the external
// identity provider (e.g., "hyQ1JdsN0a...").
//
// Keys are opaque to Lattice: the client never generates, signs with, or
// inspects them — they arrive from the identity provider on login and
// from friend-stream events, and are parsed into this type at the
// boundary. Validation exists because keys are embedded in store paths
// and room addresses: '/' would corrupt a path and '|' would corrupt
// a pair room address, so both are rejected, along with whitespace and
// non-printable bytes.
//
// PublicKey is an immutable value type. The zero value is not valid;
// use IsZero to check.
type PublicKey struct {
	key string
}

// ParsePublicKey validates and wraps a raw public-key string.
func ParsePublicKey(raw string) (PublicKey, error) {
	if raw == "" {
		return PublicKey{}, fmt.Errorf("empty public key")
	}
	for index := 0; index < len(raw); index++ {
		c := raw[index]
		if c <= ' ' || c > '~' {
			return PublicKey{}, fmt.Errorf("public key contains invalid byte 0x%02x: %q", c, raw)
		}
		if c == '/' || c == '|' {
			return PublicKey{}, fmt.Errorf("public key contains reserved character %q: %q", string(c), raw)
		}
	}
	return PublicKey{key: raw}, nil
}

// String returns the raw public-key string.
func (k PublicKey) String() string { return k.key }

// IsZero reports whether the PublicKey is the zero value (uninitialized).
func (k PublicKey) IsZero() bool { return k.key == "" }

// MarshalText implements encoding.TextMarshaler.
func (k PublicKey) MarshalText() ([]byte, error) {
	if k.IsZero() {
		return nil, fmt.Errorf("cannot marshal zero public key")
	}
	return []byte(k.key), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, validating the raw
// string. This lets encoding/json reject malformed keys at
// deserialization instead of letting them leak into store paths.
func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
