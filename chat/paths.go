// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "github.com/lattice-chat/lattice/lib/ref"

// Store path layout. Every client derives the same paths from the
// same inputs, so two users land in the same private room without any
// coordination beyond knowing each other's public key.
const (
	globalRoomPath       = "lattice/rooms/global"
	privateRoomNamespace = "lattice/rooms/private"
	friendNamespace      = "lattice/friends"
	profileNamespace     = "lattice/profiles"

	// profileAliasKey is the fixed key under a user's profile path
	// holding their published display alias.
	profileAliasKey = "alias"
)

func roomPath(room ref.RoomID) string {
	if room.IsGlobal() {
		return globalRoomPath
	}
	return privateRoomNamespace + "/" + room.String()
}

func friendPath(owner ref.PublicKey) string {
	return friendNamespace + "/" + owner.String()
}

func profilePath(owner ref.PublicKey) string {
	return profileNamespace + "/" + owner.String()
}
