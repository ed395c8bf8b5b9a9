package autherr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

func TestKindOfWrapped(t *testing.T) {
	base := New(AccountLocked, "too many attempts")
	err := fmt.Errorf("login: %w", base)

	if KindOf(err) != AccountLocked {
		t.Fatalf("KindOf=%v", KindOf(err))
	}
	if !errors.Is(err, &Error{Kind: AccountLocked}) {
		t.Fatal("errors.Is by kind should match")
	}
	if errors.Is(err, &Error{Kind: InvalidCredentials}) {
		t.Fatal("different kind must not match")
	}
}

func TestKindOfForeignErrorIsInternal(t *testing.T) {
	if KindOf(errors.New("boom")) != Internal {
		t.Fatal("foreign errors are internal")
	}
	if Is(nil, Internal) {
		t.Fatal("nil is never a kind")
	}
}

func TestValidationCopiesViolations(t *testing.T) {
	v := []string{"min_length", "digit"}
	err := Validation("weak password", v)
	v[0] = "mutated"

	got := ViolationsOf(fmt.Errorf("wrap: %w", err))
	if len(got) != 2 || got[0] != "min_length" || got[1] != "digit" {
		t.Fatalf("violations=%v", got)
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(cause, TransientStoreFailure, "store unavailable")
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	if !IsTransient(err) {
		t.Fatal("expected transient")
	}
}

func TestStoreClassification(t *testing.T) {
	if Store(nil, "x") != nil {
		t.Fatal("nil error should stay nil")
	}
	if !Is(Store(fmt.Errorf("pg: get: %w", repository.ErrTransient), "load"), TransientStoreFailure) {
		t.Fatal("transient repository error not classified")
	}
	if !Is(Store(context.DeadlineExceeded, "load"), TransientStoreFailure) {
		t.Fatal("deadline not classified as transient")
	}
	if !Is(Store(errors.New("boom"), "load"), Internal) {
		t.Fatal("unknown error should be internal")
	}
	own := New(UserNotFound, "user not found")
	if Store(own, "load") != error(own) {
		t.Fatal("domain error should pass through")
	}
}
