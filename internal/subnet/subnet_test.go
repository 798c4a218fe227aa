package subnet

import (
	"net"
	"testing"
)

func TestParseAndRemap(t *testing.T) {
	entry, err := Parse("255.255.255.0:10.0.0.5:10.0.0.6")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	table := NewTable([]Entry{entry})

	got := table.Remap(net.ParseIP("10.0.0.88"), net.ParseIP("203.0.113.5"))
	if !got.Equal(net.ParseIP("10.0.0.5")) {
		t.Fatalf("expected remap to 10.0.0.5, got %v", got)
	}

	got = table.Remap(net.ParseIP("8.8.8.8"), net.ParseIP("203.0.113.5"))
	if !got.Equal(net.ParseIP("203.0.113.5")) {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestParseRejectsMismatchedSubnet(t *testing.T) {
	if _, err := Parse("255.255.255.0:10.0.0.5:10.0.1.6"); err == nil {
		t.Fatal("expected error for mismatched subnet")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	if _, err := Parse("not-a-subnet-line"); err == nil {
		t.Fatal("expected error")
	}
}
