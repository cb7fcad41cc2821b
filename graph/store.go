// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"bytes"
	"context"
	"encoding/json"
)

// Event is one raw (value, key) delivery on a subscribed path.
//
// Value is the raw JSON of the node, or nil/null for a tombstone.
// Events carry no ordering or uniqueness guarantee: the same (path,
// key) may be delivered any number of times, and events for different
// keys arrive in arbitrary order.
type Event struct {
	// Path is the subscribed path this event was delivered on.
	Path string

	// Key identifies the node within the path. Unique within the
	// path, but the same key may be delivered more than once.
	Key string

	// Value is the raw JSON value, or nil for a tombstone.
	Value json.RawMessage
}

// Tombstone reports whether the event signals deletion or absence of
// the value. Content consumers must ignore tombstoned events.
func (e Event) Tombstone() bool {
	return len(e.Value) == 0 || bytes.Equal(bytes.TrimSpace(e.Value), []byte("null"))
}

// Handler consumes events from a subscription. For a given
// subscription, calls are sequential: each invocation runs to
// completion before the next event is delivered.
type Handler func(Event)

// Subscription is a handle on a live feed. Cancel stops further
// handler deliveries; it is idempotent and safe to call multiple
// times.
type Subscription interface {
	Cancel()
}

// Store is the consumed interface of the external graph store.
//
// The store owns conflict resolution, transport, peer discovery, and
// persistence. This interface only exposes the client-visible
// operations: live subscriptions, fire-and-forget writes, and
// snapshot reads.
type Store interface {
	// Subscribe opens a live feed of events for path. Delivery is
	// at-least-once and unordered; implementations replay currently
	// known state after subscribing. ctx bounds the subscription
	// setup only — use the returned Subscription to stop the feed.
	Subscribe(ctx context.Context, path string, handler Handler) (Subscription, error)

	// Put writes value to path under a fresh store-assigned key and
	// returns that key. The write is fire-and-forget: a nil error
	// means the write was accepted locally, not that it has
	// replicated.
	Put(ctx context.Context, path string, value any) (string, error)

	// PutKeyed writes value to path under an explicit key,
	// overwriting any existing value. Fire-and-forget like Put.
	PutKeyed(ctx context.Context, path, key string, value any) error

	// ReadOnce performs a single resolved read of (path, key).
	// Returns nil with no error when the node is absent or
	// tombstoned.
	ReadOnce(ctx context.Context, path, key string) (json.RawMessage, error)
}
