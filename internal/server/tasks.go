package server

import (
	"context"
	"time"

	"loginsrv/internal/ticket"
	"loginsrv/internal/wire"
)

const (
	presenceSweepInterval = 10 * time.Minute
	banSweepInterval      = 60 * time.Second
	// ticketSweepInterval is the timer quantum AUTH_TIMEOUT is measured
	// against; it must stay well under 30s for expiry to look prompt.
	ticketSweepInterval = 2 * time.Second
)

// runPeriodicTasks drives the IP-sync broadcast, ticket/presence garbage
// collection, IP-ban sweep, and (if configured) GM table refresh by
// posting tick events onto cmdCh — the ticking goroutines themselves
// touch no shared state.
func (s *Server) runPeriodicTasks(ctx context.Context) {
	ipSync := time.NewTicker(s.Cfg.IPSyncInterval)
	defer ipSync.Stop()
	presenceSweep := time.NewTicker(presenceSweepInterval)
	defer presenceSweep.Stop()
	ticketSweep := time.NewTicker(ticketSweepInterval)
	defer ticketSweep.Stop()
	banSweep := time.NewTicker(banSweepInterval)
	defer banSweep.Stop()

	var gmReload *time.Ticker
	if s.Cfg.GMTableRefreshInterval > 0 {
		gmReload = time.NewTicker(s.Cfg.GMTableRefreshInterval)
		defer gmReload.Stop()
	}
	gmReloadC := func() <-chan time.Time {
		if gmReload == nil {
			return nil
		}
		return gmReload.C
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ipSync.C:
			s.cmdCh <- ipSyncTickEvent{}
		case <-presenceSweep.C:
			s.cmdCh <- presenceSweepTickEvent{}
		case <-ticketSweep.C:
			s.cmdCh <- ticketSweepTickEvent{}
		case <-banSweep.C:
			s.cmdCh <- banSweepTickEvent{}
		case <-gmReloadC:
			s.cmdCh <- gmReloadTickEvent{}
		}
	}
}

func (s *Server) broadcastIPSync() {
	s.broadcastExcept(-1, wire.IPSync())
}

// sweepOrphanedPresence drops every presence left behind by a vanished
// char-server. The 10-minute cadence is the grace window: an orphan is
// removed at the first sweep after it was orphaned, whatever its age.
func (s *Server) sweepOrphanedPresence() {
	removed := s.presence.SweepOrphaned()
	if s.Metrics != nil && len(removed) > 0 {
		s.Metrics.PresenceSwept.Add(float64(len(removed)))
	}
}

// sweepExpiredTickets expires any one-time ticket that sat unredeemed past
// AuthTimeoutSeconds, dropping its matching login-only presence too.
func (s *Server) sweepExpiredTickets() {
	now := s.Clock.Now().Unix()
	s.tickets.SweepExpired(now, func(t ticket.Ticket) {
		s.presence.Remove(t.AccountID)
		if s.Metrics != nil {
			s.Metrics.TicketsExpired.Inc()
		}
	})
}

// sweepIPBans reclaims stale failure windows and refreshes the active-ban
// gauge to match what Sweep left behind.
func (s *Server) sweepIPBans() {
	now := s.Clock.Now()
	s.IPBan.Sweep(now)
	if s.Metrics != nil {
		s.Metrics.IPBansActive.Set(float64(s.IPBan.ActiveCount(now)))
	}
}

// forceOfflineIfStillOnline is the dup-login kick's own fallback timer:
// if the owning char-server never confirmed the kick with a 0x272c within
// AUTH_TIMEOUT, the presence is force-dropped so it cannot linger forever.
func (s *Server) forceOfflineIfStillOnline(accountID int32) {
	if p, ok := s.presence.Get(accountID); ok && p.CharServerSlot >= 0 {
		s.presence.Remove(accountID)
	}
}
