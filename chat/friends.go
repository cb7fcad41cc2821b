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

// FriendRegistry reconciles the friend event stream into a
// deduplicated roster keyed by public key. For each key that enters
// the roster it invokes the onNew callback exactly once, regardless of
// how many times the store redelivers the entry; the callback is the
// hook the client uses to open the friend's private-room subscription.
type FriendRegistry struct {
	logger *slog.Logger
	onNew  func(Friend)

	mu      sync.Mutex
	friends map[ref.PublicKey]Friend
}

// NewFriendRegistry returns an empty registry. onNew may be nil.
func NewFriendRegistry(logger *slog.Logger, onNew func(Friend)) *FriendRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &FriendRegistry{
		logger:  logger,
		onNew:   onNew,
		friends: make(map[ref.PublicKey]Friend),
	}
}

// OnEvent applies one raw friend-stream event. Entries whose status is
// not "friend" are ignored; redelivered entries for a known key are
// no-ops. The onNew callback runs outside the registry lock, so it may
// re-enter the registry or open store subscriptions.
func (g *FriendRegistry) OnEvent(event graph.Event) {
	friend, err := decodeFriend(event)
	if err != nil {
		g.logger.Debug("dropping friend event", "key", event.Key, "error", err)
		return
	}
	if friend.Status != StatusFriend {
		return
	}

	g.mu.Lock()
	if _, known := g.friends[friend.PublicKey]; known {
		g.mu.Unlock()
		return
	}
	g.friends[friend.PublicKey] = friend
	g.mu.Unlock()

	g.logger.Info("friend discovered",
		"pub", friend.PublicKey,
		"alias", friend.Alias)
	if g.onNew != nil {
		g.onNew(friend)
	}
}

// Friends returns a snapshot of the roster sorted by alias, with ties
// broken by public key for a stable listing.
func (g *FriendRegistry) Friends() []Friend {
	g.mu.Lock()
	out := make([]Friend, 0, len(g.friends))
	for _, friend := range g.friends {
		out = append(out, friend)
	}
	g.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Alias != out[j].Alias {
			return out[i].Alias < out[j].Alias
		}
		return out[i].PublicKey.String() < out[j].PublicKey.String()
	})
	return out
}

// Len returns the number of distinct friends in the roster.
func (g *FriendRegistry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.friends)
}
