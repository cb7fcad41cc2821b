// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat is the client-side state reconciliation core of
// Lattice.
//
// The external graph store delivers room and friend data as unordered,
// duplicate-prone, at-least-once event streams (see package graph).
// This package turns those streams into consistent queryable state:
// a deduplicated, time-ordered message list per room and a
// deduplicated friend roster that fans out into one private-room
// subscription per discovered friend.
//
// The package provides three reconciliation primitives and one
// aggregate. [Reconciler] maintains one room's canonical message list
// via idempotent merge-by-id with sorted insertion. [FriendRegistry]
// maintains the friend set and invokes a callback exactly once per
// newly discovered friend. [IsMention] flags messages that reference
// an alias. [Client] owns all of them plus the session lifecycle: it
// authenticates through an identity.Provider, opens the global-room
// and friend-stream subscriptions on login, opens a private-room
// subscription per discovered friend, and cancels the entire
// subscription set on logout so that no stale callback can mutate
// torn-down state.
//
// Every mutation is serialized: reconcilers and the registry apply one
// event at a time as an atomic unit (reject, dedupe, insert, re-sort),
// and queries return snapshots, never live views. Per-room order is a
// derived property — messages are sorted by timestamp descending with
// ties broken by ascending message ID — because the store guarantees
// nothing about arrival order.
package chat
