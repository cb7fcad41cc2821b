// Copyright 2026 The Lattice Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "testing"

func TestParsePublicKey(t *testing.T) {
	t.Run("valid keys", func(t *testing.T) {
		for _, raw := range []string{"PUBA", "hyQ1JdsN0a", "a.b-c_d=e+f", "~tilde"} {
			key, err := ParsePublicKey(raw)
			if err != nil {
				t.Errorf("ParsePublicKey(%q) failed: %v", raw, err)
				continue
			}
			if key.String() != raw {
				t.Errorf("ParsePublicKey(%q).String() = %q", raw, key.String())
			}
			if key.IsZero() {
				t.Errorf("ParsePublicKey(%q) returned zero key", raw)
			}
		}
	})

	t.Run("rejected keys", func(t *testing.T) {
		for _, raw := range []string{"", "has space", "has/slash", "has|pipe", "tab\there", "high\xc3\xa9"} {
			if _, err := ParsePublicKey(raw); err == nil {
				t.Errorf("ParsePublicKey(%q) should have failed", raw)
			}
		}
	})

	t.Run("zero value", func(t *testing.T) {
		var key PublicKey
		if !key.IsZero() {
			t.Error("zero PublicKey should report IsZero")
		}
	})
}

func TestPublicKeyText(t *testing.T) {
	key, err := ParsePublicKey("PUBA")
	if err != nil {
		t.Fatalf("ParsePublicKey failed: %v", err)
	}

	text, err := key.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	if string(text) != "PUBA" {
		t.Errorf("MarshalText = %q", text)
	}

	var decoded PublicKey
	if err := decoded.UnmarshalText([]byte("PUBB")); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if decoded.String() != "PUBB" {
		t.Errorf("UnmarshalText result = %q", decoded.String())
	}

	if err := decoded.UnmarshalText([]byte("bad|key")); err == nil {
		t.Error("UnmarshalText should reject a key with the room separator")
	}

	var zero PublicKey
	if _, err := zero.MarshalText(); err == nil {
		t.Error("MarshalText should fail for the zero key")
	}
}

func TestPairRoomID(t *testing.T) {
	keyA, _ := ParsePublicKey("PUBA")
	keyB, _ := ParsePublicKey("PUBB")

	t.Run("symmetric", func(t *testing.T) {
		forward, err := PairRoomID(keyA, keyB)
		if err != nil {
			t.Fatalf("PairRoomID failed: %v", err)
		}
		backward, err := PairRoomID(keyB, keyA)
		if err != nil {
			t.Fatalf("PairRoomID failed: %v", err)
		}
		if forward != backward {
			t.Errorf("PairRoomID not symmetric: %q vs %q", forward.String(), backward.String())
		}
		if forward.String() != "PUBA|PUBB" {
			t.Errorf("unexpected pair address: %q", forward.String())
		}
	})

	t.Run("self pair", func(t *testing.T) {
		room, err := PairRoomID(keyA, keyA)
		if err != nil {
			t.Fatalf("PairRoomID failed: %v", err)
		}
		if room.String() != "PUBA|PUBA" {
			t.Errorf("unexpected self-pair address: %q", room.String())
		}
	})

	t.Run("zero key rejected", func(t *testing.T) {
		if _, err := PairRoomID(keyA, PublicKey{}); err == nil {
			t.Error("PairRoomID should reject a zero key")
		}
	})
}

func TestParseRoomID(t *testing.T) {
	t.Run("global", func(t *testing.T) {
		room, err := ParseRoomID("global")
		if err != nil {
			t.Fatalf("ParseRoomID failed: %v", err)
		}
		if !room.IsGlobal() {
			t.Error("expected global room")
		}
	})

	t.Run("pair round trip", func(t *testing.T) {
		room, err := ParseRoomID("PUBA|PUBB")
		if err != nil {
			t.Fatalf("ParseRoomID failed: %v", err)
		}
		if room.IsGlobal() {
			t.Error("pair room should not be global")
		}
		if room.String() != "PUBA|PUBB" {
			t.Errorf("round trip changed the address: %q", room.String())
		}
	})

	t.Run("rejected", func(t *testing.T) {
		for _, raw := range []string{"", "PUBB|PUBA", "a|b|c", "just-one", "bad key|PUBB"} {
			if _, err := ParseRoomID(raw); err == nil {
				t.Errorf("ParseRoomID(%q) should have failed", raw)
			}
		}
	})
}
