// Package roster implements the fixed-size char-server slot array and the
// broadcast-wos ("without our self") fan-out semantics.
package roster

import "net"

// MaxServers bounds the slot array, matching the 0x2710 handshake's
// "account id fits within the slot array" rule.
const MaxServers = 30

// Slot is one connected char-server.
type Slot struct {
	SessionID   uint64
	Name        string
	IP          net.IP
	Port        uint16
	UserCount   uint16
	Maintenance bool
	NewServer   bool
}

// Roster is the fixed-size slot array. Owned exclusively by the dispatch
// loop; no locking.
type Roster struct {
	slots [MaxServers]*Slot
}

func New() *Roster {
	return &Roster{}
}

// Attach occupies the first free slot with s, or returns (-1, false) if the
// roster is full.
func (r *Roster) Attach(s Slot) (int, bool) {
	for i := range r.slots {
		if r.slots[i] == nil {
			cp := s
			r.slots[i] = &cp
			return i, true
		}
	}
	return -1, false
}

// AttachAt occupies a specific slot index, used when the account id itself
// selects the slot (account id < MaxServers).
func (r *Roster) AttachAt(idx int, s Slot) bool {
	if idx < 0 || idx >= MaxServers || r.slots[idx] != nil {
		return false
	}
	cp := s
	r.slots[idx] = &cp
	return true
}

func (r *Roster) Get(idx int) (*Slot, bool) {
	if idx < 0 || idx >= MaxServers || r.slots[idx] == nil {
		return nil, false
	}
	return r.slots[idx], true
}

func (r *Roster) Detach(idx int) {
	if idx >= 0 && idx < MaxServers {
		r.slots[idx] = nil
	}
}

// Count returns the number of occupied slots.
func (r *Roster) Count() int {
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// BroadcastWOS calls send for every occupied slot except excludeIdx
// (pass -1 to exclude none), matching charif_sendallwos's fan-out contract.
func (r *Roster) BroadcastWOS(excludeIdx int, send func(idx int, s *Slot)) {
	for i, s := range r.slots {
		if s == nil || i == excludeIdx {
			continue
		}
		send(i, s)
	}
}

// Each iterates every occupied slot, in slot order.
func (r *Roster) Each(fn func(idx int, s *Slot)) {
	for i, s := range r.slots {
		if s != nil {
			fn(i, s)
		}
	}
}
