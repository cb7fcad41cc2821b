// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"sync"

	"github.com/lattice-chat/lattice/graph"
)

// subscriptionSet tracks the live store subscriptions owned by one
// authenticated session: the global room, the friend stream, and one
// per opened private room. The set is torn down as a unit on logout so
// a fresh session always starts from zero subscriptions.
type subscriptionSet struct {
	mu     sync.Mutex
	closed bool
	subs   map[string]graph.Subscription
}

func newSubscriptionSet() *subscriptionSet {
	return &subscriptionSet{subs: make(map[string]graph.Subscription)}
}

// add registers a subscription under a stable name. If the name is
// already held, or the set has been torn down, the new subscription is
// canceled and add reports false. The closed check covers a subscribe
// still in flight when logout drains the set: without it the late
// subscription would outlive the session with nothing left to cancel
// it.
func (s *subscriptionSet) add(name string, sub graph.Subscription) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Cancel()
		return false
	}
	_, exists := s.subs[name]
	if !exists {
		s.subs[name] = sub
	}
	s.mu.Unlock()

	if exists {
		sub.Cancel()
		return false
	}
	return true
}

// cancelAll cancels every held subscription and closes the set. Any
// add after this point cancels its subscription immediately.
func (s *subscriptionSet) cancelAll() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.closed = true
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}
