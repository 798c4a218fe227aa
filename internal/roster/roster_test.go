package roster

import "testing"

func TestAttachFillsRosterThenRefuses(t *testing.T) {
	r := New()
	for i := 0; i < MaxServers; i++ {
		if _, ok := r.Attach(Slot{Name: "s"}); !ok {
			t.Fatalf("slot %d should have been free", i)
		}
	}
	if _, ok := r.Attach(Slot{Name: "overflow"}); ok {
		t.Fatal("expected roster full")
	}
}

func TestBroadcastWOSExcludesSender(t *testing.T) {
	r := New()
	a, _ := r.Attach(Slot{Name: "a"})
	b, _ := r.Attach(Slot{Name: "b"})
	c, _ := r.Attach(Slot{Name: "c"})

	var got []int
	r.BroadcastWOS(b, func(idx int, s *Slot) { got = append(got, idx) })

	if len(got) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(got))
	}
	for _, idx := range got {
		if idx == b {
			t.Fatal("broadcast must exclude the sender's own slot")
		}
	}
	_ = a
	_ = c
}
