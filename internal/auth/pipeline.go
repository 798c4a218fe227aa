// Package auth implements the ordered authentication pipeline:
// credential verification, anti-abuse, auto-register, and the
// post-auth presence arbitration hand-off back to the server.
package auth

import (
	"context"
	"net"
	"strings"

	"loginsrv/internal/account"
	"loginsrv/internal/clock"
	"loginsrv/internal/config"
	"loginsrv/internal/credential"
	"loginsrv/internal/dnsbl"
	"loginsrv/internal/gm"
	"loginsrv/internal/ipban"
	"loginsrv/internal/metrics"
	"loginsrv/internal/wire"
)

// Request is everything the pipeline needs from a client login attempt,
// decoupled from the wire encoding so it can be driven directly from tests.
type Request struct {
	PeerIP        net.IP
	Userid        string
	Password      string // cleartext, meaningful only when !IsMD5
	IsMD5         bool
	PasswordMD5   [16]byte
	ChallengeKey  []byte
	ClientVersion uint32
}

// Outcome is the pipeline's verdict. Code == Success on success.
type Outcome struct {
	Code     int
	Account  account.Account
	BanUntil int64 // unix seconds, meaningful only when Code == wire.ResultBanned
	LoginID1 uint32
	LoginID2 uint32
}

// Success is a sentinel distinct from every wire.Result* code.
const Success = -1

// Pipeline holds the collaborators the pipeline treats as external but
// pluggable: the account store, the IP-ban store, DNSBL, and the GM
// table, plus the clock seam tests substitute.
type Pipeline struct {
	Store   account.Store
	IPBan   ipban.Store
	DNSBL   dnsbl.Checker
	GMTable gm.Table
	Cfg     config.Config
	Clock   clock.Clock
	Metrics *metrics.Collector

	// RandUint32 supplies loginId1/loginId2 and is overridable in tests for
	// determinism; production wiring reads from crypto/rand.
	RandUint32 func() uint32

	regWindowStart int64
	regCount       int
}

// Authenticate runs the ordered login checks and returns the single
// verdict that determines the client's reply frame.
func (p *Pipeline) Authenticate(ctx context.Context, req Request) Outcome {
	now := p.Clock.Now().Unix()

	if p.IPBan.IsBanned(req.PeerIP.String(), p.Clock.Now()) {
		return Outcome{Code: wire.ResultRejected}
	}

	if p.Cfg.UseDNSBL && p.DNSBL != nil && p.DNSBL.IsListed(ctx, req.PeerIP) {
		return Outcome{Code: wire.ResultRejected}
	}

	if p.Cfg.CheckClientVersion && req.ClientVersion != p.Cfg.ClientVersionToConnect {
		return Outcome{Code: wire.ResultWrongVersion}
	}

	userid := p.normalizeUserid(req.Userid)
	if p.Cfg.NewAccount && !req.IsMD5 && req.Password != "" {
		if base, sex, ok := autoRegisterSuffix(userid); ok {
			if _, found, _ := p.Store.LoadByName(base); !found {
				if !p.allowRegistration(now) {
					return Outcome{Code: wire.ResultRejected}
				}
				created, err := p.Store.Create(account.Account{
					Userid:   base,
					Password: p.storedPassword(req.Password),
					Sex:      sex,
					Email:    account.DefaultEmail,
				})
				if err == nil {
					userid = base
				}
				_ = created
			} else {
				return Outcome{Code: wire.ResultBadPassword}
			}
		}
	}

	acc, found, err := p.Store.LoadByName(userid)
	if err != nil || !found {
		return Outcome{Code: wire.ResultUnregistered}
	}

	if !p.verifyPassword(req, acc.Password) {
		ip := req.PeerIP.String()
		p.IPBan.RecordFailure(ip, p.Clock.Now())
		// IsBanned was false at the top of this call (otherwise we would have
		// returned already), so a true verdict here means this failure is the
		// one that just tipped the sliding window into a ban.
		if p.Metrics != nil && p.IPBan.IsBanned(ip, p.Clock.Now()) {
			p.Metrics.IPBansIssued.Inc()
			p.Metrics.IPBansActive.Set(float64(p.IPBan.ActiveCount(p.Clock.Now())))
		}
		return Outcome{Code: wire.ResultBadPassword}
	}

	if acc.Expiration != 0 && acc.Expiration < now {
		return Outcome{Code: wire.ResultExpired}
	}

	if acc.UnbanTime > now {
		return Outcome{Code: wire.ResultBanned, BanUntil: acc.UnbanTime}
	}

	if acc.State != 0 {
		return Outcome{Code: int(acc.State) - 1}
	}

	if p.GMTable != nil && p.GMTable.Level(acc.ID) < p.Cfg.MinLevelToConnect {
		return Outcome{Code: wire.ResultRejected}
	}

	return p.finishSuccess(acc, req, now)
}

func (p *Pipeline) finishSuccess(acc account.Account, req Request, now int64) Outcome {
	acc.LastLogin = now
	acc.LastIP = req.PeerIP.String()
	acc.LoginCount++
	acc.UnbanTime = 0
	_ = p.Store.Save(acc)
	return Outcome{
		Code:     Success,
		Account:  acc,
		LoginID1: p.RandUint32(),
		LoginID2: p.RandUint32(),
	}
}

func (p *Pipeline) verifyPassword(req Request, stored string) bool {
	if !req.IsMD5 {
		return credential.VerifyPlain(p.storedPassword(req.Password), stored)
	}
	return credential.VerifyChallenge(req.ChallengeKey, stored, req.PasswordMD5, true, true)
}

// normalizeUserid lower-cases userid when the store is configured
// case-insensitive (case_sensitive: no), matching login_check_client_version's
// account lookup rule.
func (p *Pipeline) normalizeUserid(userid string) string {
	if p.Cfg.CaseSensitive {
		return userid
	}
	return strings.ToLower(userid)
}

func (p *Pipeline) storedPassword(plain string) string {
	if p.Cfg.UseMD5Passwords {
		return credential.HexMD5(plain)
	}
	return plain
}

func (p *Pipeline) allowRegistration(now int64) bool {
	if now-p.regWindowStart > int64(p.Cfg.TimeAllowed.Seconds()) {
		p.regWindowStart = now
		p.regCount = 0
	}
	if p.regCount >= p.Cfg.AllowedRegs {
		if p.Metrics != nil {
			p.Metrics.RegistrationsThrottled.Inc()
		}
		return false
	}
	p.regCount++
	return true
}

// autoRegisterSuffix recognizes the case-sensitive "_M"/"_F"/"_m"/"_f"
// suffix and returns the stripped userid plus the upper-cased sex letter.
func autoRegisterSuffix(userid string) (base string, sex byte, ok bool) {
	if len(userid) < 3 {
		return "", 0, false
	}
	suffix := userid[len(userid)-2:]
	switch suffix {
	case "_M", "_m":
		return userid[:len(userid)-2], account.SexMale, true
	case "_F", "_f":
		return userid[:len(userid)-2], account.SexFemale, true
	}
	return "", 0, false
}
