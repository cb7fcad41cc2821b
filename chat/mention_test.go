// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "testing"

func TestIsMention(t *testing.T) {
	tests := []struct {
		text  string
		alias string
		want  bool
	}{
		{"hi @bob, how are you", "bob", true},
		{"hi bob", "bob", false},
		{"@bob", "bob", true},
		{"email me at x@bob.example", "bob", true},
		{"hi @bobby", "bob", true},
		{"hi @alice", "bob", false},
		{"", "bob", false},
		{"hi @", "", false},
		{"@", "", false},
	}
	for _, test := range tests {
		if got := IsMention(test.text, test.alias); got != test.want {
			t.Errorf("IsMention(%q, %q) = %v, want %v",
				test.text, test.alias, got, test.want)
		}
	}
}
