// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated identity value types used at Lattice
// API boundaries.
//
// [PublicKey] is the public-key identity string assigned by the external
// identity provider. [RoomID] is a room address: either the global room
// constant or a pair address derived from two public keys. Both are
// immutable value types parsed at the boundary where raw strings enter
// the program; code past the boundary can rely on the validation having
// already happened.
//
// The zero value of each type is not valid; use IsZero to check.
package ref
