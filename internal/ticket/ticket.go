// Package ticket implements the one-time auth ticket table: issued at
// login-ok, redeemed by exactly one char-server within AUTH_TIMEOUT,
// keyed solely on accountId.
package ticket

import "net"

// AuthTimeoutSeconds is the window a ticket stays redeemable before the
// sweeper removes it; the duplicate-login kick's fallback timer uses the
// same window.
const AuthTimeoutSeconds = 30

// Ticket is a short-lived one-time login token.
type Ticket struct {
	AccountID     int32
	LoginID1      uint32
	LoginID2      uint32
	Sex           byte
	OriginatingIP net.IP
	InsertedAt    int64 // unix seconds
}

// Matches reports whether the redemption fields are byte-exact: any
// mismatch must refuse without consuming the ticket.
func (t Ticket) Matches(accountID int32, loginID1, loginID2 uint32, sex byte, ip net.IP) bool {
	return t.AccountID == accountID &&
		t.LoginID1 == loginID1 &&
		t.LoginID2 == loginID2 &&
		t.Sex == sex &&
		t.OriginatingIP.Equal(ip)
}

// Table holds at most one ticket per account. Owned exclusively by the
// dispatch loop; no locking.
type Table struct {
	byAccount map[int32]Ticket
}

func NewTable() *Table {
	return &Table{byAccount: make(map[int32]Ticket)}
}

// Insert creates (or overwrites) the ticket for t.AccountID.
func (tb *Table) Insert(t Ticket) {
	tb.byAccount[t.AccountID] = t
}

// Redeem attempts to consume the ticket for accountID. On a field-exact
// match the ticket is removed and (ticket, true) is returned; otherwise the
// table is left untouched and ok is false.
func (tb *Table) Redeem(accountID int32, loginID1, loginID2 uint32, sex byte, ip net.IP) (Ticket, bool) {
	t, found := tb.byAccount[accountID]
	if !found || !t.Matches(accountID, loginID1, loginID2, sex, ip) {
		return Ticket{}, false
	}
	delete(tb.byAccount, accountID)
	return t, true
}

// Remove deletes the ticket for accountID if present, used by the
// duplicate-login/kick path to purge a stale ticket.
func (tb *Table) Remove(accountID int32) {
	delete(tb.byAccount, accountID)
}

// Get returns the current ticket for accountID without consuming it.
func (tb *Table) Get(accountID int32) (Ticket, bool) {
	t, ok := tb.byAccount[accountID]
	return t, ok
}

// SweepExpired removes every ticket whose age has reached AUTH_TIMEOUT as of now, and
// invokes onExpire for each one (the server uses this to also drop the
// matching OnlinePresence).
func (tb *Table) SweepExpired(now int64, onExpire func(Ticket)) {
	for id, t := range tb.byAccount {
		if now-t.InsertedAt >= AuthTimeoutSeconds {
			delete(tb.byAccount, id)
			onExpire(t)
		}
	}
}
