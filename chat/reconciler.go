// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/lattice-chat/lattice/graph"
	"github.com/lattice-chat/lattice/lib/ref"
)

// Reconciler maintains one room's canonical message list in the face
// of an unordered, duplicate-prone event stream. Each event is applied
// as an atomic unit: reject tombstones and malformed payloads, drop
// anything whose ID was already merged, then insert in sorted
// position. Applying the same event stream in any order, with any
// duplication, converges on the same list.
type Reconciler struct {
	room   ref.RoomID
	logger *slog.Logger

	mu       sync.Mutex
	seen     map[string]struct{}
	messages []Message // timestamp descending, ties by ascending ID
}

// NewReconciler returns an empty reconciler for the given room.
func NewReconciler(room ref.RoomID, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		room:   room,
		logger: logger.With("room", room.String()),
		seen:   make(map[string]struct{}),
	}
}

// OnEvent applies one raw store event. Safe for concurrent use;
// malformed events and duplicates are dropped without affecting
// existing state.
func (r *Reconciler) OnEvent(event graph.Event) {
	message, err := decodeMessage(event)
	if err != nil {
		r.logger.Debug("dropping room event", "key", event.Key, "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.seen[message.ID]; dup {
		return
	}
	r.seen[message.ID] = struct{}{}
	r.insert(message)
}

// insert places the message at its sorted position. Callers hold r.mu.
func (r *Reconciler) insert(message Message) {
	at := sort.Search(len(r.messages), func(i int) bool {
		return messageBefore(message, r.messages[i])
	})
	r.messages = append(r.messages, Message{})
	copy(r.messages[at+1:], r.messages[at:])
	r.messages[at] = message
}

// messageBefore is the room ordering predicate: newer timestamps sort
// first, equal timestamps break ties by ascending message ID so that
// every replica settles on the same order.
func messageBefore(a, b Message) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp > b.Timestamp
	}
	return a.ID < b.ID
}

// Messages returns a snapshot copy of the room's current canonical
// order, newest first.
func (r *Reconciler) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Len returns the number of distinct messages merged so far.
func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// Room returns the room this reconciler serves.
func (r *Reconciler) Room() ref.RoomID { return r.room }
