package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/garnizeh/companies/internal/apperr"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	cases := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{name: "Plain", err: base, want: apperr.Internal},
		{name: "Direct", err: apperr.New(apperr.NotFound, "company not found", nil), want: apperr.NotFound},
		{name: "Wrapped", err: fmt.Errorf("create: %w", apperr.New(apperr.RemoteSyncFailure, "push", base)), want: apperr.RemoteSyncFailure},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := apperr.KindOf(c.err); got != c.want {
				t.Fatalf("KindOf: want %v got %v", c.want, got)
			}
		})
	}
}

func TestErrorUnwrapAndIs(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := fmt.Errorf("sync: %w", apperr.New(apperr.RemoteSyncFailure, "push job description", base))

	if !errors.Is(err, base) {
		t.Fatalf("expected chain to contain base error")
	}
	if !errors.Is(err, apperr.New(apperr.RemoteSyncFailure, "", nil)) {
		t.Fatalf("expected kind match via errors.Is")
	}
	if errors.Is(err, apperr.New(apperr.NotFound, "", nil)) {
		t.Fatalf("unexpected match for a different kind")
	}
	if !apperr.IsKind(err, apperr.RemoteSyncFailure) {
		t.Fatalf("IsKind should report RemoteSyncFailure")
	}
	if apperr.IsKind(nil, apperr.Internal) {
		t.Fatalf("nil error has no kind")
	}
	if got := err.Error(); got != "sync: push job description: dial tcp: refused" {
		t.Fatalf("unexpected message %q", got)
	}
}
