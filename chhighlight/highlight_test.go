package chhighlight_test

import (
	"strings"
	"testing"

	"github.com/mickamy/chnative/chhighlight"
)

func TestSQLReturnsEmptyUnchanged(t *testing.T) {
	if got := chhighlight.SQL(""); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestSQLAddsANSIEscapes(t *testing.T) {
	got := chhighlight.SQL("SELECT 1 FROM system.numbers")
	if !strings.Contains(got, "\x1b[") {
		t.Fatalf("expected ANSI escape codes in output, got %q", got)
	}
}
