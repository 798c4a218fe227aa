package ticket

import (
	"net"
	"testing"
)

func sampleTicket() Ticket {
	return Ticket{
		AccountID:     2000001,
		LoginID1:      1,
		LoginID2:      2,
		Sex:           'M',
		OriginatingIP: net.ParseIP("10.0.0.1"),
		InsertedAt:    1000,
	}
}

func TestRedeemThenReplayRefuses(t *testing.T) {
	tb := NewTable()
	tb.Insert(sampleTicket())

	got, ok := tb.Redeem(2000001, 1, 2, 'M', net.ParseIP("10.0.0.1"))
	if !ok || got.AccountID != 2000001 {
		t.Fatalf("expected redeem to succeed, got ok=%v", ok)
	}

	if _, ok := tb.Redeem(2000001, 1, 2, 'M', net.ParseIP("10.0.0.1")); ok {
		t.Fatal("replayed redemption must be refused")
	}
}

func TestRedeemMismatchDoesNotConsume(t *testing.T) {
	tb := NewTable()
	tb.Insert(sampleTicket())

	if _, ok := tb.Redeem(2000001, 999, 2, 'M', net.ParseIP("10.0.0.1")); ok {
		t.Fatal("mismatched redemption must be refused")
	}
	if _, ok := tb.Get(2000001); !ok {
		t.Fatal("ticket must survive a refused redemption")
	}
}

func TestSweepExpired(t *testing.T) {
	tb := NewTable()
	tb.Insert(sampleTicket())

	var expired []Ticket
	tb.SweepExpired(1000+AuthTimeoutSeconds, func(tk Ticket) {
		expired = append(expired, tk)
	})

	if len(expired) != 1 {
		t.Fatalf("expected 1 expired ticket, got %d", len(expired))
	}
	if _, ok := tb.Get(2000001); ok {
		t.Fatal("expired ticket must be removed")
	}
}
