// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"encoding/json"
	"fmt"

	"github.com/lattice-chat/lattice/graph"
	"github.com/lattice-chat/lattice/lib/ref"
)

// Message is one chat message as projected into local room state. The
// ID is the store-assigned event key and is the identity used for
// deduplication. Timestamp is the author's clock in milliseconds since
// the Unix epoch; it orders the room but is never trusted for
// uniqueness.
type Message struct {
	ID          string
	Text        string
	AuthorAlias string
	AuthorKey   ref.PublicKey
	Timestamp   int64
}

// FriendStatus is the status field carried on a friend event. Only
// StatusFriend entries materialize in the roster; any other value is
// ignored so that future states can ride the same stream.
type FriendStatus string

// StatusFriend marks a confirmed friend entry.
const StatusFriend FriendStatus = "friend"

// Friend is one entry in the reconciled friend roster.
type Friend struct {
	PublicKey ref.PublicKey
	Alias     string
	Status    FriendStatus
}

// Session is the authenticated-identity snapshot exposed by the
// client. The zero value means logged out.
type Session struct {
	Alias         string
	PublicKey     ref.PublicKey
	Authenticated bool
}

// wireMessage is the payload shape of a room event. Msg is a pointer
// so that a payload lacking the field entirely can be told apart from
// an empty string and rejected.
type wireMessage struct {
	Msg  *string `json:"msg"`
	User string  `json:"user"`
	Pub  string  `json:"pub"`
	Time int64   `json:"time"`
}

// wireFriend is the payload shape of a friend event. The event key,
// not the Pub field, is authoritative for the friend's public key.
type wireFriend struct {
	Pub    string `json:"pub"`
	Alias  string `json:"alias"`
	Status string `json:"status"`
}

// decodeMessage projects a raw room event into a Message. It returns
// an error for tombstones, payloads that are not JSON objects, and
// payloads lacking a msg field; such events are dropped by the
// caller. A missing or malformed pub field degrades to a zero
// AuthorKey rather than rejecting the message.
func decodeMessage(event graph.Event) (Message, error) {
	if event.Tombstone() {
		return Message{}, fmt.Errorf("tombstone event")
	}
	var wire wireMessage
	if err := json.Unmarshal(event.Value, &wire); err != nil {
		return Message{}, fmt.Errorf("decoding message payload: %w", err)
	}
	if wire.Msg == nil {
		return Message{}, fmt.Errorf("message payload has no msg field")
	}
	message := Message{
		ID:          event.Key,
		Text:        *wire.Msg,
		AuthorAlias: wire.User,
		Timestamp:   wire.Time,
	}
	if key, err := ref.ParsePublicKey(wire.Pub); err == nil {
		message.AuthorKey = key
	}
	return message, nil
}

// decodeFriend projects a raw friend event into a Friend. Tombstones,
// non-object payloads, and events whose key is not a valid public key
// are rejected. Entries whose status is anything other than "friend"
// decode successfully but are filtered by the registry.
func decodeFriend(event graph.Event) (Friend, error) {
	if event.Tombstone() {
		return Friend{}, fmt.Errorf("tombstone event")
	}
	var wire wireFriend
	if err := json.Unmarshal(event.Value, &wire); err != nil {
		return Friend{}, fmt.Errorf("decoding friend payload: %w", err)
	}
	key, err := ref.ParsePublicKey(event.Key)
	if err != nil {
		return Friend{}, fmt.Errorf("friend event key: %w", err)
	}
	return Friend{
		PublicKey: key,
		Alias:     wire.Alias,
		Status:    FriendStatus(wire.Status),
	}, nil
}
