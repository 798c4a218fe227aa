package server

import (
	"context"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"loginsrv/internal/account"
	"loginsrv/internal/auth"
	"loginsrv/internal/presence"
	"loginsrv/internal/roster"
	"loginsrv/internal/session"
	"loginsrv/internal/ticket"
	"loginsrv/internal/wire"
)

// dispatchClientFrame routes one decoded frame from a session still in
// RoleUnknown or already promoted to RoleClient. A session only ever
// drives a single login attempt before the connection is expected to
// close, except for the challenge-key and keepalive opcodes which may
// precede it.
func (s *Server) dispatchClientFrame(sess *session.Session, op uint16, data []byte) {
	switch op {
	case wire.ClientLoginV1, wire.ClientLoginMD5, wire.ClientLoginV2, wire.ClientLoginV3:
		s.handleClientLogin(sess, data)
	case wire.ClientRequestKey:
		s.handleChallengeKeyRequest(sess)
	case wire.CharServerHandshake:
		s.handleCharServerHandshake(sess, data)
	case wire.ClientKeepAlive1, wire.ClientKeepAlive2:
		// silently consumed
	case wire.ClientVersionQuery:
		s.writeFrame(sess, wire.VersionReply(s.Cfg.ClientVersionToConnect))
	case wire.ClientAdminLogin:
		s.writeFrame(sess, wire.AdminReply(3))
	default:
		s.Log.Info("unsupported opcode from client, dropping connection", zap.Uint16("opcode", op))
		_ = sess.Conn.Close()
	}
}

func (s *Server) handleChallengeKeyRequest(sess *session.Session) {
	key, err := session.GenerateChallengeKey()
	if err != nil {
		s.Log.Warn("challenge key generation failed", zap.Error(err))
		return
	}
	sess.ChallengeKey = key
	s.writeFrame(sess, wire.ChallengeKeyReply(key))
}

func (s *Server) handleClientLogin(sess *session.Session, data []byte) {
	req, err := wire.DecodeClientLogin(data)
	if err != nil {
		return
	}
	sess.Role = session.RoleClient

	outcome := s.pipeline.Authenticate(context.Background(), auth.Request{
		PeerIP:        sess.PeerIP,
		Userid:        req.Userid,
		Password:      req.Password,
		IsMD5:         req.IsMD5,
		PasswordMD5:   req.PasswordMD5,
		ChallengeKey:  sess.ChallengeKey,
		ClientVersion: req.ClientVersion,
	})

	if s.Metrics != nil {
		s.Metrics.AuthAttempts.WithLabelValues(strconv.Itoa(outcome.Code)).Inc()
	}

	if outcome.Code != auth.Success {
		s.logLogin(sess, req.Userid, outcome.Code, "login denied")
		s.replyLoginFail(sess, outcome)
		return
	}

	s.logLogin(sess, req.Userid, auth.Success, "login accepted")
	s.finishClientLogin(sess, outcome)
}

func (s *Server) replyLoginFail(sess *session.Session, outcome auth.Outcome) {
	banUntil := ""
	if outcome.Code == wire.ResultBanned {
		banUntil = time.Unix(outcome.BanUntil, 0).Format(s.Cfg.DateFormat)
	}
	s.writeFrame(sess, wire.LoginFail(uint8(outcome.Code), banUntil))
}

func (s *Server) logLogin(sess *session.Session, who string, code int, message string) {
	if s.LoginLog != nil {
		s.LoginLog.Record(sess.PeerIP.String(), who, code, message)
	}
}

// finishClientLogin applies the post-auth presence arbitration and either
// issues a ticket plus server list, or sends the zero-char-server
// force-close quirk.
func (s *Server) finishClientLogin(sess *session.Session, outcome auth.Outcome) {
	acc := outcome.Account

	if s.Cfg.OnlineCheck {
		if p, ok := s.presence.Get(acc.ID); ok {
			switch {
			case p.CharServerSlot >= 0:
				s.broadcastExcept(-1, wire.Kick(acc.ID))
				s.scheduleDupLoginTimeout(acc.ID)
				s.writeFrame(sess, wire.LoginFail(wire.ResultAlreadyOnline, ""))
				return
			case p.CharServerSlot == presence.SlotLoginOnly:
				s.tickets.Remove(acc.ID)
				s.presence.Remove(acc.ID)
			}
		}
	}

	if s.roster.Count() == 0 {
		s.writeFrame(sess, wire.ForceClose(1))
		return
	}

	entries := s.buildServerList(sess.PeerIP)

	s.tickets.Insert(ticket.Ticket{
		AccountID:     acc.ID,
		LoginID1:      outcome.LoginID1,
		LoginID2:      outcome.LoginID2,
		Sex:           acc.Sex,
		OriginatingIP: sess.PeerIP,
		InsertedAt:    s.Clock.Now().Unix(),
	})
	s.presence.Insert(presence.Presence{
		AccountID:      acc.ID,
		CharServerSlot: presence.SlotLoginOnly,
		InsertedAt:     s.Clock.Now().Unix(),
	})
	if s.Metrics != nil {
		s.Metrics.TicketsIssued.Inc()
	}

	s.writeFrame(sess, wire.LoginOK(outcome.LoginID1, acc.ID, outcome.LoginID2, acc.Sex, entries))
}

// buildServerList reports every attached char-server, remapping its
// advertised address to a LAN-local one when clientIP shares a subnet
// with a configured entry.
func (s *Server) buildServerList(clientIP net.IP) []wire.ServerListEntry {
	var entries []wire.ServerListEntry
	s.roster.Each(func(_ int, slot *roster.Slot) {
		ip := s.subnets.Remap(clientIP, slot.IP)
		var ipBytes [4]byte
		copy(ipBytes[:], ip.To4())
		entries = append(entries, wire.ServerListEntry{
			IP:          ipBytes,
			Port:        slot.Port,
			Name:        slot.Name,
			UserCount:   slot.UserCount,
			Maintenance: boolToUint16(slot.Maintenance),
			New:         boolToUint16(slot.NewServer),
		})
	})
	return entries
}

func boolToUint16(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// handleCharServerHandshake authenticates a char-server's own service
// account and, on success, promotes the session and binds it to a roster
// slot chosen by its account id.
func (s *Server) handleCharServerHandshake(sess *session.Session, data []byte) {
	req, err := wire.DecodeCharServerHandshake(data)
	if err != nil {
		return
	}

	outcome := s.pipeline.Authenticate(context.Background(), auth.Request{
		PeerIP:   sess.PeerIP,
		Userid:   req.Userid,
		Password: req.Password,
	})
	if outcome.Code != auth.Success || outcome.Account.Sex != account.SexServer {
		s.writeFrame(sess, wire.HandshakeAck(3))
		return
	}

	slot := roster.Slot{
		SessionID:   uint64(sess.ID),
		Name:        req.Name,
		IP:          net.IP(req.IP[:]),
		Port:        req.Port,
		Maintenance: req.Maintenance,
		NewServer:   req.NewServer,
	}

	idx := int(outcome.Account.ID)
	if idx < 0 || idx >= roster.MaxServers || !s.roster.AttachAt(idx, slot) {
		s.writeFrame(sess, wire.HandshakeAck(3))
		return
	}

	sess.Role = session.RoleCharServer
	sess.Slot = idx
	sess.AccountID = outcome.Account.ID
	if s.Metrics != nil {
		s.Metrics.CharServersOnline.Set(float64(s.roster.Count()))
	}
	s.writeFrame(sess, wire.HandshakeAck(0))
	s.sendGMAccountsTo(sess)
}
