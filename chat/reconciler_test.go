// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"encoding/json"
	"testing"

	"github.com/lattice-chat/lattice/graph"
	"github.com/lattice-chat/lattice/lib/ref"
)

// messageEvent builds a raw room event with the wire payload shape.
func messageEvent(t *testing.T, key, text, user string, timeMs int64) graph.Event {
	t.Helper()
	value, err := json.Marshal(map[string]any{
		"msg":  text,
		"user": user,
		"pub":  "PUBKEY" + user,
		"time": timeMs,
	})
	if err != nil {
		t.Fatalf("encoding payload: %v", err)
	}
	return graph.Event{Path: globalRoomPath, Key: key, Value: value}
}

func TestReconcilerDeduplicatesByID(t *testing.T) {
	r := NewReconciler(ref.GlobalRoom(), nil)

	event := messageEvent(t, "m1", "hello", "alice", 2000)
	r.OnEvent(event)
	r.OnEvent(event)
	r.OnEvent(event)

	if got := r.Len(); got != 1 {
		t.Fatalf("after duplicate delivery: got %d messages, want 1", got)
	}
	messages := r.Messages()
	if messages[0].ID != "m1" || messages[0].Text != "hello" {
		t.Fatalf("unexpected message: %+v", messages[0])
	}
}

func TestReconcilerOrdersNewestFirst(t *testing.T) {
	// m2 was written later in wall-clock terms but arrives first: the
	// store makes no ordering promises.
	events := []graph.Event{
		messageEvent(t, "m2", "second", "bob", 1000),
		messageEvent(t, "m1", "first", "alice", 2000),
	}

	r := NewReconciler(ref.GlobalRoom(), nil)
	for _, event := range events {
		r.OnEvent(event)
	}

	messages := r.Messages()
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].ID != "m1" || messages[1].ID != "m2" {
		t.Fatalf("got order [%s %s], want [m1 m2]", messages[0].ID, messages[1].ID)
	}
}

func TestReconcilerTieBreaksByAscendingID(t *testing.T) {
	r := NewReconciler(ref.GlobalRoom(), nil)
	r.OnEvent(messageEvent(t, "mB", "b", "bob", 5000))
	r.OnEvent(messageEvent(t, "mA", "a", "alice", 5000))
	r.OnEvent(messageEvent(t, "mC", "c", "carol", 5000))

	messages := r.Messages()
	want := []string{"mA", "mB", "mC"}
	for i, id := range want {
		if messages[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, messages[i].ID, id)
		}
	}
}

func TestReconcilerConvergesAcrossArrivalOrders(t *testing.T) {
	events := []graph.Event{
		messageEvent(t, "m1", "one", "alice", 3000),
		messageEvent(t, "m2", "two", "bob", 1000),
		messageEvent(t, "m3", "three", "carol", 2000),
		messageEvent(t, "m4", "four", "alice", 3000),
	}

	forward := NewReconciler(ref.GlobalRoom(), nil)
	for _, event := range events {
		forward.OnEvent(event)
	}
	// Reverse order with every event redelivered once.
	backward := NewReconciler(ref.GlobalRoom(), nil)
	for i := len(events) - 1; i >= 0; i-- {
		backward.OnEvent(events[i])
		backward.OnEvent(events[i])
	}

	a, b := forward.Messages(), backward.Messages()
	if len(a) != len(b) {
		t.Fatalf("lengths diverged: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("position %d diverged: %+v vs %+v", i, a[i], b[i])
		}
	}
	want := []string{"m1", "m4", "m3", "m2"}
	for i, id := range want {
		if a[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, a[i].ID, id)
		}
	}
}

func TestReconcilerRejectsUnusableEvents(t *testing.T) {
	tests := []struct {
		name  string
		event graph.Event
	}{
		{"tombstone nil", graph.Event{Key: "t1", Value: nil}},
		{"tombstone null", graph.Event{Key: "t2", Value: json.RawMessage(`null`)}},
		{"not an object", graph.Event{Key: "t3", Value: json.RawMessage(`"just a string"`)}},
		{"missing msg field", graph.Event{Key: "t4", Value: json.RawMessage(`{"user":"alice","time":100}`)}},
		{"broken json", graph.Event{Key: "t5", Value: json.RawMessage(`{"msg":`)}},
	}

	r := NewReconciler(ref.GlobalRoom(), nil)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r.OnEvent(test.event)
			if got := r.Len(); got != 0 {
				t.Fatalf("event leaked into room state: %d messages", got)
			}
		})
	}

	// An empty msg string has the field and is kept.
	r.OnEvent(graph.Event{Key: "ok", Value: json.RawMessage(`{"msg":"","user":"alice","time":100}`)})
	if got := r.Len(); got != 1 {
		t.Fatalf("empty-text message rejected: got %d messages, want 1", got)
	}
}

func TestReconcilerToleratesMissingAuthorKey(t *testing.T) {
	r := NewReconciler(ref.GlobalRoom(), nil)
	r.OnEvent(graph.Event{Key: "m1", Value: json.RawMessage(`{"msg":"hi","user":"alice","time":100}`)})

	messages := r.Messages()
	if len(messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(messages))
	}
	if !messages[0].AuthorKey.IsZero() {
		t.Fatalf("expected zero author key, got %q", messages[0].AuthorKey)
	}
}

func TestReconcilerSnapshotsAreIsolated(t *testing.T) {
	r := NewReconciler(ref.GlobalRoom(), nil)
	r.OnEvent(messageEvent(t, "m1", "hello", "alice", 1000))

	snapshot := r.Messages()
	snapshot[0].Text = "tampered"

	if got := r.Messages()[0].Text; got != "hello" {
		t.Fatalf("snapshot mutation leaked into room state: %q", got)
	}
}
