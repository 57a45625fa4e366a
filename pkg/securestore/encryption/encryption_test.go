package encryption

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, KeySize)
	sealed, err := Seal([]byte(`{"version":2}`), key, "waqt.settings")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !bytes.HasPrefix(sealed, []byte(sealPrefix)) {
		t.Fatalf("missing prefix: %q", sealed[:4])
	}
	plain, err := Open(sealed, key, "waqt.settings")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(plain) != `{"version":2}` {
		t.Fatalf("got %q", plain)
	}
}

func TestOpen_WrongNameOrKey(t *testing.T) {
	key := bytes.Repeat([]byte{0x22}, KeySize)
	sealed, err := Seal([]byte("secret"), key, "a")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(sealed, key, "b"); err == nil {
		t.Fatal("expected failure for a different name")
	}
	if _, err := Open(sealed, bytes.Repeat([]byte{0x23}, KeySize), "a"); err == nil {
		t.Fatal("expected failure for a different key")
	}
}

func TestOpen_Malformed(t *testing.T) {
	key := bytes.Repeat([]byte{0x33}, KeySize)
	for _, in := range [][]byte{nil, []byte("gc"), []byte("plain text"), []byte("gcm1abc")} {
		if _, err := Open(in, key, "k"); !errors.Is(err, ErrMalformed) {
			t.Errorf("Open(%q): expected ErrMalformed, got %v", in, err)
		}
	}
}

func TestSeal_InvalidKey(t *testing.T) {
	if _, err := Seal([]byte("x"), []byte{0x01}, "k"); err == nil {
		t.Fatal("expected error for invalid key length")
	}
}

func TestDeriveKey(t *testing.T) {
	master := bytes.Repeat([]byte{0x44}, KeySize)
	a1, err := DeriveKey(master, "state/a")
	if err != nil {
		t.Fatal(err)
	}
	a2, _ := DeriveKey(master, "state/a")
	b, _ := DeriveKey(master, "state/b")
	if !bytes.Equal(a1, a2) {
		t.Fatal("derivation is not deterministic")
	}
	if bytes.Equal(a1, b) || bytes.Equal(a1, master) {
		t.Fatal("derived keys must differ per purpose and from the master")
	}
	if _, err := DeriveKey([]byte("short"), "x"); err == nil {
		t.Fatal("expected error for short master key")
	}
}
