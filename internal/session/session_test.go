package session

import (
	"net"
	"testing"
)

type fakeAddr struct{ s string }

func (a fakeAddr) Network() string { return "tcp" }
func (a fakeAddr) String() string  { return a.s }

type fakeConn struct {
	net.Conn
	remote net.Addr
}

func (c fakeConn) RemoteAddr() net.Addr { return c.remote }

func TestNewParsesPeerIP(t *testing.T) {
	conn := fakeConn{remote: fakeAddr{s: "203.0.113.9:4444"}}
	sess := New(1, conn)

	if sess.Role != RoleUnknown {
		t.Fatalf("expected RoleUnknown, got %v", sess.Role)
	}
	if sess.Slot != -1 {
		t.Fatalf("expected Slot -1, got %d", sess.Slot)
	}
	if !sess.PeerIP.Equal(net.ParseIP("203.0.113.9")) {
		t.Fatalf("expected peer ip 203.0.113.9, got %v", sess.PeerIP)
	}
}

func TestGenerateChallengeKeyLengthAndRange(t *testing.T) {
	key, err := GenerateChallengeKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(key) < 12 || len(key) > 15 {
		t.Fatalf("expected length in [12,15], got %d", len(key))
	}
	for _, b := range key {
		if b == 0 {
			t.Fatal("challenge key must not contain a zero byte")
		}
	}
}

func TestRegistryAddGetRemoveEach(t *testing.T) {
	r := NewRegistry()
	conn := fakeConn{remote: fakeAddr{s: "10.0.0.1:1"}}
	a := New(1, conn)
	b := New(2, conn)
	r.Add(a)
	r.Add(b)

	if r.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", r.Len())
	}
	if _, ok := r.Get(1); !ok {
		t.Fatal("expected to find session 1")
	}

	seen := 0
	r.Each(func(*Session) { seen++ })
	if seen != 2 {
		t.Fatalf("expected Each to visit 2 sessions, got %d", seen)
	}

	r.Remove(1)
	if _, ok := r.Get(1); ok {
		t.Fatal("session 1 should have been removed")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 session remaining, got %d", r.Len())
	}
}
