// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lattice-chat/lattice/lib/clock"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(clock.Fake(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestMemoryStorePutDelivers(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	var events []Event
	sub, err := store.Subscribe(ctx, "rooms/global", func(event Event) {
		events = append(events, event)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Cancel()

	key, err := store.Put(ctx, "rooms/global", map[string]any{"msg": "hello"})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if key == "" {
		t.Fatal("Put returned empty key")
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Key != key {
		t.Errorf("event key = %q, want %q", events[0].Key, key)
	}
	if events[0].Path != "rooms/global" {
		t.Errorf("event path = %q", events[0].Path)
	}

	var value map[string]string
	if err := json.Unmarshal(events[0].Value, &value); err != nil {
		t.Fatalf("unmarshaling event value: %v", err)
	}
	if value["msg"] != "hello" {
		t.Errorf("event value = %v", value)
	}
}

func TestMemoryStoreAssignsUniqueKeys(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := store.Put(ctx, "rooms/global", map[string]any{"n": i})
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if seen[key] {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = true
	}
}

func TestMemoryStoreReplaysOnSubscribe(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	if err := store.PutKeyed(ctx, "friends/PUBA", "PUBB", map[string]string{"alias": "bob"}); err != nil {
		t.Fatalf("PutKeyed failed: %v", err)
	}
	if err := store.PutKeyed(ctx, "friends/PUBA", "PUBC", map[string]string{"alias": "carol"}); err != nil {
		t.Fatalf("PutKeyed failed: %v", err)
	}

	keys := make(map[string]bool)
	sub, err := store.Subscribe(ctx, "friends/PUBA", func(event Event) {
		keys[event.Key] = true
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Cancel()

	if !keys["PUBB"] || !keys["PUBC"] {
		t.Errorf("replay missed entries: %v", keys)
	}
}

func TestMemoryStoreCancelStopsDelivery(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	count := 0
	sub, err := store.Subscribe(ctx, "rooms/global", func(Event) { count++ })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if _, err := store.Put(ctx, "rooms/global", "one"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	sub.Cancel()
	sub.Cancel() // idempotent
	if _, err := store.Put(ctx, "rooms/global", "two"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
}

func TestMemoryStoreSubscribeFromHandler(t *testing.T) {
	// A handler must be able to call back into the store: discovering
	// a friend opens that friend's room feed from within the friend
	// stream handler.
	store := newTestStore()
	ctx := context.Background()

	var roomEvents []Event
	sub, err := store.Subscribe(ctx, "friends/PUBA", func(event Event) {
		roomSub, err := store.Subscribe(ctx, "rooms/private/x", func(event Event) {
			roomEvents = append(roomEvents, event)
		})
		if err != nil {
			t.Errorf("nested Subscribe failed: %v", err)
			return
		}
		t.Cleanup(roomSub.Cancel)
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Cancel()

	if err := store.PutKeyed(ctx, "rooms/private/x", "m1", map[string]string{"msg": "hi"}); err != nil {
		t.Fatalf("PutKeyed failed: %v", err)
	}
	if err := store.PutKeyed(ctx, "friends/PUBA", "PUBB", map[string]string{"status": "friend"}); err != nil {
		t.Fatalf("PutKeyed failed: %v", err)
	}

	if len(roomEvents) != 1 {
		t.Fatalf("nested subscription replay missed: %d events", len(roomEvents))
	}
	if roomEvents[0].Key != "m1" {
		t.Errorf("replayed key = %q", roomEvents[0].Key)
	}
}

func TestMemoryStoreReadOnce(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	t.Run("absent", func(t *testing.T) {
		value, err := store.ReadOnce(ctx, "profiles/PUBA", "alias")
		if err != nil {
			t.Fatalf("ReadOnce failed: %v", err)
		}
		if value != nil {
			t.Errorf("expected nil for absent node, got %s", value)
		}
	})

	t.Run("present", func(t *testing.T) {
		if err := store.PutKeyed(ctx, "profiles/PUBA", "alias", "alice"); err != nil {
			t.Fatalf("PutKeyed failed: %v", err)
		}
		value, err := store.ReadOnce(ctx, "profiles/PUBA", "alias")
		if err != nil {
			t.Fatalf("ReadOnce failed: %v", err)
		}
		var alias string
		if err := json.Unmarshal(value, &alias); err != nil {
			t.Fatalf("unmarshaling: %v", err)
		}
		if alias != "alice" {
			t.Errorf("alias = %q", alias)
		}
	})

	t.Run("tombstoned", func(t *testing.T) {
		if err := store.PutKeyed(ctx, "profiles/PUBA", "alias", nil); err != nil {
			t.Fatalf("PutKeyed failed: %v", err)
		}
		value, err := store.ReadOnce(ctx, "profiles/PUBA", "alias")
		if err != nil {
			t.Fatalf("ReadOnce failed: %v", err)
		}
		if value != nil {
			t.Errorf("expected nil for tombstoned node, got %s", value)
		}
	})
}

func TestEventTombstone(t *testing.T) {
	for _, test := range []struct {
		name  string
		value json.RawMessage
		want  bool
	}{
		{"nil value", nil, true},
		{"json null", json.RawMessage("null"), true},
		{"json null with space", json.RawMessage(" null "), true},
		{"object", json.RawMessage(`{"msg":"hi"}`), false},
		{"string", json.RawMessage(`"hi"`), false},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := (Event{Value: test.value}).Tombstone(); got != test.want {
				t.Errorf("Tombstone() = %v, want %v", got, test.want)
			}
		})
	}
}
