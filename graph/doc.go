// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

// Package graph is the boundary to the external replicated graph
// store.
//
// The store is eventually consistent and delivers data as a live
// stream of (value, key) events per subscribed path with at-least-once
// semantics: events arrive in no particular order, may be duplicated
// on reconnect or replay, and may carry a tombstone (absent value)
// signaling deletion. Consumers are expected to be idempotent;
// nothing in this package deduplicates.
//
// [Store] is the consumed interface: Subscribe for live feeds, Put and
// PutKeyed for fire-and-forget writes, ReadOnce for snapshot reads.
// Two implementations exist:
//
//   - [Client]: connects to a graph relay over websocket, reconnecting
//     with capped backoff and re-issuing every active subscription
//     after a reconnect. The relay replays current state on subscribe,
//     which is where most duplicate deliveries come from.
//   - [MemoryStore]: an in-process store for tests and offline use.
//     It replays existing entries on subscribe, matching the relay's
//     delivery semantics.
//
// Keys for unkeyed writes are assigned by the store as ULIDs, so a key
// is globally unique within its path.
package graph
