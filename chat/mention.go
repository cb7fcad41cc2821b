// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "strings"

// IsMention reports whether text references alias with an "@" prefix.
// The check is a plain substring match: "hi @bob, how are you"
// mentions bob, "hi bob" does not.
//
// An empty alias is deliberately treated as no match, even though a
// literal reading of the substring rule would have a bare "@" match
// any text containing one. Authenticated aliases are never empty, so
// the guard only affects logged-out callers, where flagging every "@"
// as a self-mention would be nonsense.
func IsMention(text, alias string) bool {
	if alias == "" {
		return false
	}
	return strings.Contains(text, "@"+alias)
}
