package password

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestPolicyReportsExactViolations(t *testing.T) {
	strict := Policy{MinLength: 6, RequireUpper: true, RequireLower: true, RequireDigit: true, RequireSpecial: true}

	cases := []struct {
		in   string
		want []string
	}{
		{"Abc1!x", nil},
		{"abc", []string{ViolationMinLength, ViolationUppercase, ViolationDigit, ViolationSpecial}},
		{"ABCDEF1!", []string{ViolationLowercase}},
		{"Abcdef!", []string{ViolationDigit}},
		{"Abcdef1", []string{ViolationSpecial}},
		{"", []string{ViolationMinLength, ViolationUppercase, ViolationLowercase, ViolationDigit, ViolationSpecial}},
		// "_" y "-" no están en el set especial
		{"Abcde1_-", []string{ViolationSpecial}},
	}
	for _, c := range cases {
		ok, got := strict.Validate(c.in)
		if ok != (len(c.want) == 0) || !reflect.DeepEqual(got, c.want) {
			t.Fatalf("Validate(%q) = %v %v, want %v", c.in, ok, got, c.want)
		}
	}
}

func TestPolicyRelaxed(t *testing.T) {
	ok, v := Policy{MinLength: 3}.Validate("abc")
	if !ok || len(v) != 0 {
		t.Fatalf("expected ok, got %v", v)
	}
}

func TestBcryptRoundTrip(t *testing.T) {
	h, err := Bcrypt{Cost: 4}.Hash("S3cret!pass")
	if err != nil {
		t.Fatal(err)
	}
	if !Verify(h, "S3cret!pass") {
		t.Fatal("expected match")
	}
	if Verify(h, "wrong") {
		t.Fatal("expected mismatch")
	}
}

func TestArgon2idRoundTrip(t *testing.T) {
	p := Argon2id{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}
	h, err := p.Hash("S3cret!pass")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(h, "$argon2id$v=19$") {
		t.Fatalf("unexpected format: %s", h)
	}
	if !Verify(h, "S3cret!pass") || Verify(h, "nope") {
		t.Fatal("argon2id verify mismatch")
	}
}

func TestHashEmptyRejected(t *testing.T) {
	if _, err := (Bcrypt{}).Hash(""); err != ErrEmptyPassword {
		t.Fatalf("err=%v", err)
	}
}

func TestNewHasher(t *testing.T) {
	if _, err := NewHasher("scrypt", 0); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
	h, err := NewHasher("argon2id", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := h.(Argon2id); !ok {
		t.Fatalf("got %T", h)
	}
}

type slowHasher struct{ d time.Duration }

func (s slowHasher) Hash(string) (string, error) {
	time.Sleep(s.d)
	return "x", nil
}

func TestHashContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := HashContext(ctx, slowHasher{d: 200 * time.Millisecond}, "pw"); err != context.DeadlineExceeded {
		t.Fatalf("err=%v", err)
	}
}

func TestBlacklist(t *testing.T) {
	bl, err := ReadBlacklist(strings.NewReader("# comunes\nPassword1\n123456\n\n"))
	if err != nil {
		t.Fatal(err)
	}
	if bl.Len() != 2 || !bl.Contains("password1") || bl.Contains("other") {
		t.Fatalf("blacklist mismatch: len=%d", bl.Len())
	}
	var nilBL *Blacklist
	if nilBL.Contains("x") {
		t.Fatal("nil blacklist contains nothing")
	}
}

func TestDefaultBlacklist(t *testing.T) {
	bl, err := LoadBlacklist("")
	if err != nil {
		t.Fatal(err)
	}
	if bl.Len() == 0 || !bl.Contains("Password123") || !bl.Contains(" qwerty ") {
		t.Fatalf("default list not loaded: len=%d", bl.Len())
	}
	if bl.Contains("# passwords más frecuentes en filtraciones públicas (lowercase).") {
		t.Fatal("comment line treated as entry")
	}
	if _, err := LoadBlacklist("/does/not/exist.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
