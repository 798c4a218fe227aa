// Package presence implements the online-presence registry: one entry
// per account, reconciled on char-server disconnect via a bounded
// orphan grace period.
package presence

// CharServerSlot sentinel values.
const (
	SlotLoginOnly = -1 // authed but never reached a char-server
	SlotOrphaned  = -2 // char-server that owned this presence vanished
)

// Presence records that an account is believed to be online.
type Presence struct {
	AccountID       int32
	CharServerSlot  int
	InsertedAt      int64 // unix seconds, for the login-only grace window
}

// Registry holds at most one Presence per account. Owned exclusively by
// the dispatch loop; no locking.
type Registry struct {
	byAccount map[int32]*Presence
}

func NewRegistry() *Registry {
	return &Registry{byAccount: make(map[int32]*Presence)}
}

func (r *Registry) Get(accountID int32) (*Presence, bool) {
	p, ok := r.byAccount[accountID]
	return p, ok
}

// Insert creates or replaces the presence for accountID.
func (r *Registry) Insert(p Presence) {
	cp := p
	r.byAccount[p.AccountID] = &cp
}

func (r *Registry) Remove(accountID int32) {
	delete(r.byAccount, accountID)
}

// AttachToSlot marks accountID as present on slot (>= 0).
func (r *Registry) AttachToSlot(accountID int32, slot int, now int64) {
	r.Insert(Presence{AccountID: accountID, CharServerSlot: slot, InsertedAt: now})
}

// OrphanSlot transitions every presence owned by slot to SlotOrphaned, used
// when that char-server disconnects, starting its grace interval. Returns
// the number of presences orphaned, for metrics.
func (r *Registry) OrphanSlot(slot int) int {
	n := 0
	for _, p := range r.byAccount {
		if p.CharServerSlot == slot {
			p.CharServerSlot = SlotOrphaned
			n++
		}
	}
	return n
}

// ResyncSlot implements 0x272d: every existing presence owned by slot is
// first orphaned, then the supplied accountIDs are reattached to slot.
func (r *Registry) ResyncSlot(slot int, accountIDs []int32, now int64) {
	r.OrphanSlot(slot)
	for _, id := range accountIDs {
		r.AttachToSlot(id, slot, now)
	}
}

// RemoveBySlot deletes every presence currently attached to slot, used by
// the "all offline" notice (0x2737) which marks a slot's whole population
// offline immediately rather than via the orphan grace window.
func (r *Registry) RemoveBySlot(slot int) {
	for id, p := range r.byAccount {
		if p.CharServerSlot == slot {
			delete(r.byAccount, id)
		}
	}
}

// SweepOrphaned removes every presence whose CharServerSlot is
// SlotOrphaned, independent of age — the periodic task runs this on a
// 10-minute cadence, which is itself the grace period.
func (r *Registry) SweepOrphaned() []int32 {
	var removed []int32
	for id, p := range r.byAccount {
		if p.CharServerSlot == SlotOrphaned {
			delete(r.byAccount, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Len reports the number of tracked presences, for metrics.
func (r *Registry) Len() int { return len(r.byAccount) }
