// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"fmt"
	"strings"
)

// RoomSeparator joins the two sorted public keys of a pair room address.
// ParsePublicKey rejects keys containing this character, so distinct
// unordered key pairs always produce distinct room IDs.
const RoomSeparator = "|"

// GlobalRoomName is the address of the singleton global room.
const GlobalRoomName = "global"

// RoomID is a validated room address. It is either [GlobalRoom] or a
// pair address of the form "<keyA>|<keyB>" with the keys in
// lexicographic order, produced by [PairRoomID].
//
// RoomID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type RoomID struct {
	id string
}

// GlobalRoom returns the RoomID of the singleton global room.
func GlobalRoom() RoomID {
	return RoomID{id: GlobalRoomName}
}

// PairRoomID derives the canonical room address for a pair of
// identities. The derivation is deterministic and symmetric:
// PairRoomID(a, b) == PairRoomID(b, a) for all key pairs, with no
// hidden state. The two keys are sorted lexicographically and joined
// with [RoomSeparator].
func PairRoomID(a, b PublicKey) (RoomID, error) {
	if a.IsZero() || b.IsZero() {
		return RoomID{}, fmt.Errorf("pair room requires two non-zero public keys")
	}
	first, second := a.String(), b.String()
	if second < first {
		first, second = second, first
	}
	return RoomID{id: first + RoomSeparator + second}, nil
}

// ParseRoomID validates and wraps a raw room address string. Accepts
// the global room name or a two-part pair address whose halves are
// valid public keys in lexicographic order.
func ParseRoomID(raw string) (RoomID, error) {
	if raw == "" {
		return RoomID{}, fmt.Errorf("empty room ID")
	}
	if raw == GlobalRoomName {
		return GlobalRoom(), nil
	}

	parts := strings.Split(raw, RoomSeparator)
	if len(parts) != 2 {
		return RoomID{}, fmt.Errorf("room ID is neither %q nor a pair address: %q", GlobalRoomName, raw)
	}
	first, err := ParsePublicKey(parts[0])
	if err != nil {
		return RoomID{}, fmt.Errorf("room ID first key: %w", err)
	}
	second, err := ParsePublicKey(parts[1])
	if err != nil {
		return RoomID{}, fmt.Errorf("room ID second key: %w", err)
	}
	if second.String() < first.String() {
		return RoomID{}, fmt.Errorf("room ID keys out of canonical order: %q", raw)
	}
	return RoomID{id: raw}, nil
}

// String returns the full room address string.
func (r RoomID) String() string { return r.id }

// IsZero reports whether the RoomID is the zero value (uninitialized).
func (r RoomID) IsZero() bool { return r.id == "" }

// IsGlobal reports whether this is the global room.
func (r RoomID) IsGlobal() bool { return r.id == GlobalRoomName }
