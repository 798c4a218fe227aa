package ipban

import (
	"testing"
	"time"
)

func TestBanAfterLimitReached(t *testing.T) {
	s := NewMemStore(5*time.Minute, 3, 5*time.Minute)
	now := time.Unix(1000, 0)

	for i := 0; i < 2; i++ {
		s.RecordFailure("1.2.3.4", now)
	}
	if s.IsBanned("1.2.3.4", now) {
		t.Fatal("should not be banned below the limit")
	}

	s.RecordFailure("1.2.3.4", now)
	if !s.IsBanned("1.2.3.4", now) {
		t.Fatal("expected ban after reaching the limit")
	}
}

func TestBanExpiresAfterDuration(t *testing.T) {
	s := NewMemStore(5*time.Minute, 1, time.Minute)
	now := time.Unix(1000, 0)
	s.RecordFailure("1.2.3.4", now)

	if !s.IsBanned("1.2.3.4", now) {
		t.Fatal("expected immediate ban at limit=1")
	}
	if s.IsBanned("1.2.3.4", now.Add(2*time.Minute)) {
		t.Fatal("expected ban to have expired")
	}
}

func TestActiveCountReflectsCurrentBans(t *testing.T) {
	s := NewMemStore(5*time.Minute, 1, time.Minute)
	now := time.Unix(1000, 0)

	if s.ActiveCount(now) != 0 {
		t.Fatal("expected no active bans before any failure")
	}
	s.RecordFailure("1.2.3.4", now)
	if s.ActiveCount(now) != 1 {
		t.Fatalf("expected 1 active ban, got %d", s.ActiveCount(now))
	}
	if s.ActiveCount(now.Add(2*time.Minute)) != 0 {
		t.Fatal("expected ban to no longer count as active once expired")
	}
}

func TestSweepRemovesStaleWindow(t *testing.T) {
	s := NewMemStore(time.Minute, 5, time.Minute)
	now := time.Unix(1000, 0)
	s.RecordFailure("1.2.3.4", now)

	s.Sweep(now.Add(10 * time.Minute))
	if len(s.windows) != 0 {
		t.Fatalf("expected the stale window to be removed, %d remain", len(s.windows))
	}
	if s.IsBanned("1.2.3.4", now.Add(10*time.Minute)) {
		t.Fatal("expired window should not ban")
	}
}
