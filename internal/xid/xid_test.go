package xid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	a := New("ord")
	b := New("ord")
	if a == b {
		t.Fatalf("expected distinct ids, got %q twice", a)
	}
	if !strings.HasPrefix(a, "ord-") {
		t.Fatalf("expected ord- prefix, got %q", a)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(a, "ord-")); err != nil {
		t.Fatalf("expected uuid suffix: %v", err)
	}
}
