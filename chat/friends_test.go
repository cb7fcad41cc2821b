// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"encoding/json"
	"testing"

	"github.com/lattice-chat/lattice/graph"
)

func friendEvent(t *testing.T, pub, alias, status string) graph.Event {
	t.Helper()
	value, err := json.Marshal(map[string]string{
		"pub":    pub,
		"alias":  alias,
		"status": status,
	})
	if err != nil {
		t.Fatalf("encoding payload: %v", err)
	}
	return graph.Event{Path: "lattice/friends/SELF", Key: pub, Value: value}
}

func TestFriendRegistryDeduplicates(t *testing.T) {
	var added []Friend
	g := NewFriendRegistry(nil, func(friend Friend) {
		added = append(added, friend)
	})

	event := friendEvent(t, "PUBBOB", "bob", "friend")
	g.OnEvent(event)
	g.OnEvent(event)
	g.OnEvent(event)

	if got := g.Len(); got != 1 {
		t.Fatalf("after duplicate delivery: got %d friends, want 1", got)
	}
	if len(added) != 1 {
		t.Fatalf("onNew fired %d times, want exactly once", len(added))
	}
	if added[0].Alias != "bob" || added[0].PublicKey.String() != "PUBBOB" {
		t.Fatalf("unexpected friend: %+v", added[0])
	}
}

func TestFriendRegistryFiltersByStatus(t *testing.T) {
	fired := 0
	g := NewFriendRegistry(nil, func(Friend) { fired++ })

	g.OnEvent(friendEvent(t, "PUBBOB", "bob", "pending"))
	g.OnEvent(friendEvent(t, "PUBCAROL", "carol", "blocked"))
	g.OnEvent(friendEvent(t, "PUBDAVE", "dave", ""))

	if got := g.Len(); got != 0 {
		t.Fatalf("non-friend statuses entered roster: %d entries", got)
	}
	if fired != 0 {
		t.Fatalf("onNew fired %d times for non-friend statuses", fired)
	}

	// The same key flipping to "friend" later materializes normally.
	g.OnEvent(friendEvent(t, "PUBBOB", "bob", "friend"))
	if got := g.Len(); got != 1 {
		t.Fatalf("got %d friends, want 1", got)
	}
	if fired != 1 {
		t.Fatalf("onNew fired %d times, want 1", fired)
	}
}

func TestFriendRegistryRejectsUnusableEvents(t *testing.T) {
	g := NewFriendRegistry(nil, nil)

	g.OnEvent(graph.Event{Key: "PUBBOB", Value: nil})
	g.OnEvent(graph.Event{Key: "PUBBOB", Value: json.RawMessage(`null`)})
	g.OnEvent(graph.Event{Key: "PUBBOB", Value: json.RawMessage(`[1,2]`)})
	// Key with a path separator is not a valid public key.
	g.OnEvent(graph.Event{Key: "bad/key", Value: json.RawMessage(`{"alias":"x","status":"friend"}`)})

	if got := g.Len(); got != 0 {
		t.Fatalf("unusable events entered roster: %d entries", got)
	}
}

func TestFriendRegistrySortsByAlias(t *testing.T) {
	g := NewFriendRegistry(nil, nil)
	g.OnEvent(friendEvent(t, "PUBC", "carol", "friend"))
	g.OnEvent(friendEvent(t, "PUBA", "alice", "friend"))
	g.OnEvent(friendEvent(t, "PUBB", "bob", "friend"))

	friends := g.Friends()
	want := []string{"alice", "bob", "carol"}
	for i, alias := range want {
		if friends[i].Alias != alias {
			t.Fatalf("position %d: got %s, want %s", i, friends[i].Alias, alias)
		}
	}
}
