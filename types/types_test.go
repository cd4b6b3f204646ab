package types

import "testing"

func TestHashString(t *testing.T) {
	var h Hash
	h[0] = 0xab
	h[31] = 0xcd
	want := "0xab000000000000000000000000000000000000000000000000000000000000cd"
	if len(h.String()) != 2+64 {
		t.Fatalf("String() length = %d, want %d", len(h.String()), 2+64)
	}
	if h.String() != want {
		t.Fatalf("String() = %q, want %q", h.String(), want)
	}
}

func TestHashIsZero(t *testing.T) {
	var h Hash
	if !h.IsZero() {
		t.Fatalf("zero-value Hash should report IsZero")
	}
	h[5] = 1
	if h.IsZero() {
		t.Fatalf("non-zero Hash should not report IsZero")
	}
}

func TestHashLess(t *testing.T) {
	a := Hash{0x01}
	b := Hash{0x02}
	if !a.Less(b) {
		t.Fatalf("expected a < b")
	}
	if b.Less(a) {
		t.Fatalf("expected !(b < a)")
	}
	if a.Less(a) {
		t.Fatalf("expected !(a < a)")
	}
}

func TestValidatorKeysEqual(t *testing.T) {
	a := ValidatorKeys{Bandersnatch: BandersnatchKey{1}}
	b := ValidatorKeys{Bandersnatch: BandersnatchKey{1}}
	c := ValidatorKeys{Bandersnatch: BandersnatchKey{2}}
	if !a.Equal(b) {
		t.Fatalf("expected a == b")
	}
	if a.Equal(c) {
		t.Fatalf("expected a != c")
	}
}
