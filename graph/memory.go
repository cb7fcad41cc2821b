// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/lattice-chat/lattice/lib/clock"
)

// MemoryStore is an in-process Store implementation used by tests and
// offline operation. It mirrors the relay's delivery semantics:
// Subscribe replays all currently known entries for the path, so a
// subscriber that races a writer can observe the same event twice.
//
// MemoryStore is safe for concurrent use. Handler callbacks are
// invoked synchronously from the writing goroutine, outside the store
// lock, so handlers may call back into the store (including opening
// new subscriptions).
type MemoryStore struct {
	clock clock.Clock

	mu      sync.Mutex
	entropy io.Reader
	nodes   map[string]map[string]json.RawMessage
	subs    map[string]map[uint64]*memorySubscription
	nextSub uint64
}

// NewMemoryStore creates an empty in-process store. clk stamps the
// time component of assigned keys; pass clock.Real() outside tests.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{
		clock:   clk,
		entropy: ulid.Monotonic(rand.Reader, 0),
		nodes:   make(map[string]map[string]json.RawMessage),
		subs:    make(map[string]map[uint64]*memorySubscription),
	}
}

type memorySubscription struct {
	store    *MemoryStore
	path     string
	id       uint64
	handler  Handler
	canceled atomic.Bool
}

// Cancel stops further handler deliveries. Idempotent.
func (s *memorySubscription) Cancel() {
	if s.canceled.Swap(true) {
		return
	}
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	delete(s.store.subs[s.path], s.id)
}

func (s *memorySubscription) deliver(event Event) {
	if s.canceled.Load() {
		return
	}
	s.handler(event)
}

// Subscribe opens a live feed for path and replays every entry the
// store currently holds. The replay happens before Subscribe returns.
func (m *MemoryStore) Subscribe(ctx context.Context, path string, handler Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("graph: subscribe requires a path")
	}

	m.mu.Lock()
	m.nextSub++
	sub := &memorySubscription{store: m, path: path, id: m.nextSub, handler: handler}
	if m.subs[path] == nil {
		m.subs[path] = make(map[uint64]*memorySubscription)
	}
	m.subs[path][sub.id] = sub

	// Snapshot current entries for replay outside the lock. A write
	// arriving between snapshot and replay is delivered twice — the
	// at-least-once contract makes that legal.
	replay := make([]Event, 0, len(m.nodes[path]))
	for key, value := range m.nodes[path] {
		replay = append(replay, Event{Path: path, Key: key, Value: value})
	}
	m.mu.Unlock()

	for _, event := range replay {
		sub.deliver(event)
	}
	return sub, nil
}

// Put writes value under a fresh ULID key and returns the key.
func (m *MemoryStore) Put(ctx context.Context, path string, value any) (string, error) {
	m.mu.Lock()
	key := ulid.MustNew(ulid.Timestamp(m.clock.Now()), m.entropy).String()
	m.mu.Unlock()

	if err := m.PutKeyed(ctx, path, key, value); err != nil {
		return "", err
	}
	return key, nil
}

// PutKeyed writes value under an explicit key, overwriting any
// existing value. A nil value writes a tombstone.
func (m *MemoryStore) PutKeyed(ctx context.Context, path, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" || key == "" {
		return fmt.Errorf("graph: put requires a path and key")
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("graph: encoding value for %s/%s: %w", path, key, err)
	}

	m.mu.Lock()
	if m.nodes[path] == nil {
		m.nodes[path] = make(map[string]json.RawMessage)
	}
	m.nodes[path][key] = encoded

	notify := make([]*memorySubscription, 0, len(m.subs[path]))
	for _, sub := range m.subs[path] {
		notify = append(notify, sub)
	}
	m.mu.Unlock()

	event := Event{Path: path, Key: key, Value: encoded}
	for _, sub := range notify {
		sub.deliver(event)
	}
	return nil
}

// ReadOnce returns the current value of (path, key), or nil when the
// node is absent or tombstoned.
func (m *MemoryStore) ReadOnce(ctx context.Context, path, key string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.nodes[path][key]
	if !ok {
		return nil, nil
	}
	if (Event{Value: value}).Tombstone() {
		return nil, nil
	}
	out := make(json.RawMessage, len(value))
	copy(out, value)
	return out, nil
}

// Compile-time check: *MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
