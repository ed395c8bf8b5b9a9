package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

var testKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func TestSealOpen(t *testing.T) {
	b, err := New(testKey)
	if err != nil {
		t.Fatal(err)
	}
	sealed, err := b.Seal("client-secret")
	if err != nil {
		t.Fatal(err)
	}
	if !IsSealed(sealed) || strings.Contains(sealed, "client-secret") {
		t.Fatalf("not sealed: %s", sealed)
	}
	again, _ := b.Seal(sealed)
	if again != sealed {
		t.Fatal("sealing twice must be a no-op")
	}
	plain, err := b.Open(sealed)
	if err != nil || plain != "client-secret" {
		t.Fatalf("open=%q err=%v", plain, err)
	}
}

func TestOpenPlaintextPassthrough(t *testing.T) {
	b, _ := New(testKey)
	v, err := b.Open("legacy-plain")
	if err != nil || v != "legacy-plain" {
		t.Fatalf("v=%q err=%v", v, err)
	}
}

func TestOpenWrongKey(t *testing.T) {
	b1, _ := New(testKey)
	b2, _ := New(strings.Repeat("ab", 32))
	sealed, _ := b1.Seal("x")
	if _, err := b2.Open(sealed); err == nil {
		t.Fatal("expected auth failure")
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New("short"); err == nil {
		t.Fatal("expected error")
	}
}
