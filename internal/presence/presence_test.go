package presence

import "testing"

func TestOrphanThenSweep(t *testing.T) {
	r := NewRegistry()
	r.AttachToSlot(1, 7, 1000)
	r.AttachToSlot(2, 7, 1000)
	r.AttachToSlot(3, 9, 1000)

	r.OrphanSlot(7)

	p1, _ := r.Get(1)
	if p1.CharServerSlot != SlotOrphaned {
		t.Fatalf("expected orphaned, got %d", p1.CharServerSlot)
	}
	p3, _ := r.Get(3)
	if p3.CharServerSlot != 9 {
		t.Fatalf("slot 9 presence should be unaffected, got %d", p3.CharServerSlot)
	}

	removed := r.SweepOrphaned()
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %d", len(removed))
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 remaining presence, got %d", r.Len())
	}
}

func TestRemoveBySlot(t *testing.T) {
	r := NewRegistry()
	r.AttachToSlot(1, 7, 1000)
	r.AttachToSlot(2, 7, 1000)
	r.AttachToSlot(3, 9, 1000)

	r.RemoveBySlot(7)

	if _, ok := r.Get(1); ok {
		t.Fatal("presence 1 should have been removed")
	}
	if _, ok := r.Get(2); ok {
		t.Fatal("presence 2 should have been removed")
	}
	if _, ok := r.Get(3); !ok {
		t.Fatal("presence 3 on a different slot should be unaffected")
	}
}

func TestResyncSlot(t *testing.T) {
	r := NewRegistry()
	r.AttachToSlot(1, 7, 1000)
	r.AttachToSlot(2, 7, 1000)

	r.ResyncSlot(7, []int32{2, 5}, 2000)

	if _, ok := r.Get(1); !ok {
		t.Fatal("presence 1 should still exist, now orphaned")
	}
	p1, _ := r.Get(1)
	if p1.CharServerSlot != SlotOrphaned {
		t.Fatalf("expected presence 1 orphaned, got %d", p1.CharServerSlot)
	}
	p2, _ := r.Get(2)
	if p2.CharServerSlot != 7 {
		t.Fatalf("expected presence 2 reattached to slot 7, got %d", p2.CharServerSlot)
	}
	p5, ok := r.Get(5)
	if !ok || p5.CharServerSlot != 7 {
		t.Fatal("expected presence 5 attached to slot 7")
	}
}
