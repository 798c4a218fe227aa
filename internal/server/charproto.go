package server

import (
	"net"
	"time"

	"go.uber.org/zap"

	"loginsrv/internal/account"
	"loginsrv/internal/session"
	"loginsrv/internal/wire"
)

// dispatchCharFrame routes one decoded frame from a session already
// promoted to RoleCharServer. Any opcode not recognized here terminates
// the connection, matching the inter-server protocol's fatal-on-unknown
// rule.
func (s *Server) dispatchCharFrame(sess *session.Session, op uint16, data []byte) {
	switch op {
	case wire.FromCharReloadGM:
		s.handleReloadGM(sess)
	case wire.FromCharTicketRedeem:
		s.handleTicketRedeem(sess, data)
	case wire.FromCharUserCount:
		s.handleUserCount(sess, data)
	case wire.FromCharSetEmail:
		s.handleSetEmail(sess, data)
	case wire.FromCharQueryEmail:
		s.handleQueryEmail(sess, data)
	case wire.FromCharPing:
		s.writeFrame(sess, wire.Pong())
	case wire.FromCharChangeEmail:
		s.handleChangeEmail(sess, data)
	case wire.FromCharSetState:
		s.handleSetState(sess, data)
	case wire.FromCharExtendBan:
		s.handleExtendBan(sess, data)
	case wire.FromCharFlipSex:
		s.handleFlipSex(sess, data)
	case wire.FromCharSetAccReg2:
		s.handleSetAccReg2(sess, data)
	case wire.FromCharUnban:
		s.handleUnban(sess, data)
	case wire.FromCharSetOnline:
		s.handleSetOnline(sess, data)
	case wire.FromCharSetOffline:
		s.handleSetOffline(sess, data)
	case wire.FromCharFullResync:
		s.handleFullResync(sess, data)
	case wire.FromCharQueryAccReg2:
		s.handleQueryAccReg2(sess, data)
	case wire.FromCharUpdateWANIP:
		s.handleUpdateWANIP(sess, data)
	case wire.FromCharAllOffline:
		s.handleAllOffline(sess)
	default:
		s.cmdCh <- closeEvent{id: sess.ID, reason: "unknown inter-server opcode"}
		_ = sess.Conn.Close()
	}
}

func (s *Server) handleReloadGM(sess *session.Session) {
	if s.GMTable == nil {
		return
	}
	if err := s.GMTable.Reload(); err != nil {
		s.Log.Warn("gm table reload failed", zap.Error(err))
		return
	}
	s.broadcastGMAccounts(-1)
}

// broadcastGMAccounts pushes the current GM table to every attached
// char-server except excludeSlot (-1 to exclude none).
func (s *Server) broadcastGMAccounts(excludeSlot int) {
	if s.GMTable == nil {
		return
	}
	s.broadcastExcept(excludeSlot, wire.GMAccounts(s.gmEntries()))
}

// sendGMAccountsTo pushes the current GM table to a single session, used
// right after a char-server finishes its handshake.
func (s *Server) sendGMAccountsTo(sess *session.Session) {
	if s.GMTable == nil {
		return
	}
	s.writeFrame(sess, wire.GMAccounts(s.gmEntries()))
}

func (s *Server) gmEntries() []wire.GMEntry {
	snapshot := s.GMTable.Snapshot()
	entries := make([]wire.GMEntry, len(snapshot))
	for i, e := range snapshot {
		entries[i] = wire.GMEntry{AccountID: e.AccountID, Level: int32(e.Level)}
	}
	return entries
}

func (s *Server) handleTicketRedeem(sess *session.Session, data []byte) {
	req, err := wire.DecodeTicketRedeem(data)
	if err != nil {
		return
	}
	_, ok := s.tickets.Redeem(req.AccountID, req.LoginID1, req.LoginID2, req.Sex, net.IP(req.IP[:]))
	if !ok {
		s.writeFrame(sess, wire.TicketReply(req.AccountID, false, "", 0))
		return
	}
	acc, found, err := s.Store.LoadByID(req.AccountID)
	if err != nil || !found {
		s.writeFrame(sess, wire.TicketReply(req.AccountID, false, "", 0))
		return
	}
	s.presence.AttachToSlot(acc.ID, sess.Slot, s.Clock.Now().Unix())
	if s.Metrics != nil {
		s.Metrics.TicketsRedeemed.Inc()
	}
	s.writeFrame(sess, wire.TicketReply(req.AccountID, true, acc.Email, acc.Expiration))
}

func (s *Server) handleUserCount(sess *session.Session, data []byte) {
	count, err := wire.DecodeUserCount(data)
	if err != nil {
		return
	}
	if slot, ok := s.roster.Get(sess.Slot); ok {
		slot.UserCount = count
	}
}

func (s *Server) handleSetEmail(sess *session.Session, data []byte) {
	req, err := wire.DecodeSetEmail(data)
	if err != nil {
		return
	}
	acc, found, err := s.Store.LoadByID(req.AccountID)
	if err != nil || !found || !account.HasDefaultEmail(acc.Email) {
		return
	}
	acc.Email = req.Email
	_ = s.Store.Save(acc)
}

func (s *Server) handleQueryEmail(sess *session.Session, data []byte) {
	id, err := wire.DecodeAccountIDRequest(data)
	if err != nil {
		return
	}
	acc, found, err := s.Store.LoadByID(id)
	if err != nil || !found {
		return
	}
	s.writeFrame(sess, wire.EmailReply(id, acc.Email, acc.Expiration))
}

func (s *Server) handleChangeEmail(sess *session.Session, data []byte) {
	req, err := wire.DecodeChangeEmail(data)
	if err != nil {
		return
	}
	acc, found, err := s.Store.LoadByID(req.AccountID)
	if err != nil || !found {
		return
	}
	if acc.Email != req.OldEmail || req.NewEmail == "" || req.NewEmail == account.DefaultEmail {
		return
	}
	acc.Email = req.NewEmail
	_ = s.Store.Save(acc)
}

func (s *Server) handleSetState(sess *session.Session, data []byte) {
	req, err := wire.DecodeSetState(data)
	if err != nil {
		return
	}
	acc, found, err := s.Store.LoadByID(req.AccountID)
	if err != nil || !found {
		return
	}
	acc.State = req.State
	_ = s.Store.Save(acc)
	if req.State != 0 {
		s.broadcastExcept(sess.Slot, wire.BroadcastState(req.AccountID, 0, req.State))
	}
}

func (s *Server) handleExtendBan(sess *session.Session, data []byte) {
	req, err := wire.DecodeExtendBan(data)
	if err != nil {
		return
	}
	acc, found, err := s.Store.LoadByID(req.AccountID)
	if err != nil || !found {
		return
	}
	now := s.Clock.Now()
	base := now
	if acc.UnbanTime > now.Unix() {
		base = time.Unix(acc.UnbanTime, 0)
	}
	newUnban := base.AddDate(int(req.Years), int(req.Months), int(req.Days)).
		Add(time.Duration(req.Hours)*time.Hour + time.Duration(req.Minutes)*time.Minute + time.Duration(req.Seconds)*time.Second)
	if newUnban.Unix() <= now.Unix() {
		return
	}
	acc.UnbanTime = newUnban.Unix()
	_ = s.Store.Save(acc)
	s.broadcastExcept(sess.Slot, wire.BroadcastState(req.AccountID, 1, int32(newUnban.Unix())))
}

func (s *Server) handleFlipSex(sess *session.Session, data []byte) {
	id, err := wire.DecodeAccountIDRequest(data)
	if err != nil {
		return
	}
	acc, found, err := s.Store.LoadByID(id)
	if err != nil || !found || acc.Sex == account.SexServer {
		return
	}
	if acc.Sex == account.SexMale {
		acc.Sex = account.SexFemale
	} else {
		acc.Sex = account.SexMale
	}
	_ = s.Store.Save(acc)
	s.broadcastExcept(-1, wire.SexReply(id, acc.Sex))
}

func (s *Server) handleSetAccReg2(sess *session.Session, data []byte) {
	accountID, pairs, err := wire.DecodeSetAccReg2(data)
	if err != nil {
		return
	}
	acc, found, err := s.Store.LoadByID(accountID)
	if err != nil || !found {
		return
	}
	acc.AccountReg2 = toAccountRegPairs(pairs)
	_ = s.Store.Save(acc)
	s.broadcastExcept(sess.Slot, wire.AccReg2Reply(accountID, 0, pairs))
}

func (s *Server) handleQueryAccReg2(sess *session.Session, data []byte) {
	id, err := wire.DecodeAccountIDRequest(data)
	if err != nil {
		return
	}
	acc, found, err := s.Store.LoadByID(id)
	if err != nil || !found {
		return
	}
	s.writeFrame(sess, wire.AccReg2Reply(id, 1, fromAccountRegPairs(acc.AccountReg2)))
}

func (s *Server) handleUnban(sess *session.Session, data []byte) {
	id, err := wire.DecodeAccountIDRequest(data)
	if err != nil {
		return
	}
	acc, found, err := s.Store.LoadByID(id)
	if err != nil || !found {
		return
	}
	acc.UnbanTime = 0
	_ = s.Store.Save(acc)
}

func (s *Server) handleSetOnline(sess *session.Session, data []byte) {
	id, err := wire.DecodeAccountIDRequest(data)
	if err != nil {
		return
	}
	s.presence.AttachToSlot(id, sess.Slot, s.Clock.Now().Unix())
}

func (s *Server) handleSetOffline(sess *session.Session, data []byte) {
	id, err := wire.DecodeAccountIDRequest(data)
	if err != nil {
		return
	}
	s.presence.Remove(id)
}

func (s *Server) handleFullResync(sess *session.Session, data []byte) {
	entries, err := wire.DecodeFullResync(data)
	if err != nil {
		return
	}
	ids := make([]int32, len(entries))
	for i, e := range entries {
		ids[i] = e.AccountID
	}
	s.presence.ResyncSlot(sess.Slot, ids, s.Clock.Now().Unix())
}

func (s *Server) handleUpdateWANIP(sess *session.Session, data []byte) {
	ip, err := wire.DecodeUpdateWANIP(data)
	if err != nil {
		return
	}
	if slot, ok := s.roster.Get(sess.Slot); ok {
		slot.IP = net.IP(ip[:])
	}
}

func (s *Server) handleAllOffline(sess *session.Session) {
	s.presence.RemoveBySlot(sess.Slot)
}

func toAccountRegPairs(pairs []wire.AccReg2Pair) []account.RegPair {
	out := make([]account.RegPair, len(pairs))
	for i, p := range pairs {
		out[i] = account.RegPair{Key: p.Key, Value: p.Value}
	}
	return out
}

func fromAccountRegPairs(pairs []account.RegPair) []wire.AccReg2Pair {
	out := make([]wire.AccReg2Pair, len(pairs))
	for i, p := range pairs {
		out[i] = wire.AccReg2Pair{Key: p.Key, Value: p.Value}
	}
	return out
}
