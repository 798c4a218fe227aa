// Package server implements the login server's accept loop and the single
// dispatch-loop goroutine that owns every piece of shared state: the
// session registry, ticket table, presence registry, char-server roster,
// subnet table, and GM table. Per-connection goroutines only read frames
// off the wire and hand them to the dispatch loop over a channel; they
// never touch shared state directly.
package server

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"loginsrv/internal/account"
	"loginsrv/internal/auth"
	"loginsrv/internal/clock"
	"loginsrv/internal/config"
	"loginsrv/internal/dnsbl"
	"loginsrv/internal/gm"
	"loginsrv/internal/ipban"
	"loginsrv/internal/logging"
	"loginsrv/internal/metrics"
	"loginsrv/internal/presence"
	"loginsrv/internal/roster"
	"loginsrv/internal/session"
	"loginsrv/internal/subnet"
	"loginsrv/internal/ticket"
	"loginsrv/internal/wire"
)

// commandQueueSize bounds how many decoded frames and internal events may
// be pending for the dispatch loop before a reader goroutine blocks.
const commandQueueSize = 1024

// Server owns every table the core depends on plus the external
// collaborators it drives during dispatch. Exactly one goroutine (the
// dispatch loop started by Run) ever reads or writes the table fields;
// everything else communicates with it over cmdCh.
type Server struct {
	Cfg     config.Config
	Store   account.Store
	IPBan   ipban.Store
	DNSBL   dnsbl.Checker
	GMTable gm.Table
	Clock   clock.Clock
	Log     *zap.Logger
	LoginLog *logging.LoginLog
	Metrics *metrics.Collector

	sessions *session.Registry
	tickets  *ticket.Table
	presence *presence.Registry
	roster   *roster.Roster
	subnets  *subnet.Table
	pipeline *auth.Pipeline

	listener net.Listener
	cmdCh    chan event
	nextID   uint64
	cancel   context.CancelFunc
}

// New builds a Server with empty tables, ready for Run.
func New(cfg config.Config, store account.Store, ban ipban.Store, checker dnsbl.Checker, gmTable gm.Table, clk clock.Clock, log *zap.Logger, loginLog *logging.LoginLog, mc *metrics.Collector) *Server {
	s := &Server{
		Cfg:      cfg,
		Store:    store,
		IPBan:    ban,
		DNSBL:    checker,
		GMTable:  gmTable,
		Clock:    clk,
		Log:      log,
		LoginLog: loginLog,
		Metrics:  mc,
		sessions: session.NewRegistry(),
		tickets:  ticket.NewTable(),
		presence: presence.NewRegistry(),
		roster:   roster.New(),
		subnets:  subnet.NewTable(cfg.Subnets),
		cmdCh:    make(chan event, commandQueueSize),
	}
	s.pipeline = &auth.Pipeline{
		Store:      store,
		IPBan:      ban,
		DNSBL:      checker,
		GMTable:    gmTable,
		Cfg:        cfg,
		Clock:      clk,
		Metrics:    mc,
		RandUint32: randUint32,
	}
	return s
}

func randUint32() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint32(b[:])
}

// Run accepts connections on addr and blocks until ctx is cancelled or the
// console "shutdown" command runs; it returns an error only when listening
// on addr fails. It starts the periodic tasks and the single
// dispatch-loop goroutine and tears everything down gracefully on return.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = ln
	s.Log.Info("login server listening", zap.String("addr", addr))

	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.dispatchLoop(gCtx)
		return nil
	})
	g.Go(func() error {
		return s.acceptLoop(gCtx)
	})
	g.Go(func() error {
		s.runPeriodicTasks(gCtx)
		return nil
	})
	if s.Cfg.Console {
		g.Go(func() error {
			s.consoleLoop(gCtx)
			return nil
		})
	}
	g.Go(func() error {
		<-gCtx.Done()
		_ = s.listener.Close()
		s.cmdCh <- shutdownEvent{}
		return nil
	})

	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) {
				s.Log.Warn("accept error", zap.Error(err))
				continue
			}
			return nil
		}
		id := session.ID(atomic.AddUint64(&s.nextID, 1))
		sess := session.New(id, conn)
		s.cmdCh <- newConnEvent{sess: sess}
		go s.readLoop(sess)
	}
}

// readLoop owns nothing but the connection and its local receive buffer.
// It never touches Server's tables; every decoded frame and every
// terminal condition is reported to the dispatch loop as an event.
func (s *Server) readLoop(sess *session.Session) {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		_ = sess.Conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		n, err := sess.Conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		for {
			frameLen, ferr := wire.NextFrame(buf)
			if ferr != nil {
				var unknown wire.ErrUnknownOpcode
				if errors.As(ferr, &unknown) {
					s.cmdCh <- closeEvent{id: sess.ID, reason: ferr.Error()}
					_ = sess.Conn.Close()
					return
				}
				break
			}
			frame := make([]byte, frameLen)
			copy(frame, buf[:frameLen])
			buf = buf[frameLen:]
			s.cmdCh <- frameEvent{id: sess.ID, data: frame}
		}
		if err != nil {
			s.cmdCh <- closeEvent{id: sess.ID, reason: err.Error()}
			return
		}
	}
}

// dispatchLoop is the only goroutine that ever reads or mutates the
// session registry, ticket table, presence registry, roster, or subnet
// table. It runs until ctx is cancelled or a shutdownEvent arrives.
func (s *Server) dispatchLoop(ctx context.Context) {
	for {
		select {
		case ev := <-s.cmdCh:
			switch v := ev.(type) {
			case shutdownEvent:
				return
			case newConnEvent:
				s.sessions.Add(v.sess)
				s.observeSessionCount()
			case closeEvent:
				s.handleClose(v.id, v.reason)
			case frameEvent:
				s.handleFrame(v.id, v.data)
			case ipSyncTickEvent:
				s.broadcastIPSync()
			case presenceSweepTickEvent:
				s.sweepOrphanedPresence()
			case ticketSweepTickEvent:
				s.sweepExpiredTickets()
			case dupLoginTimeoutEvent:
				s.forceOfflineIfStillOnline(v.accountID)
			case banSweepTickEvent:
				s.sweepIPBans()
			case consoleEvent:
				s.handleConsoleCommand(v.cmd)
			case gmReloadTickEvent:
				if s.GMTable != nil {
					if err := s.GMTable.Reload(); err != nil {
						s.Log.Warn("gm table reload failed", zap.Error(err))
					} else {
						s.broadcastGMAccounts(-1)
					}
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handleFrame(id session.ID, data []byte) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	op, ok := wire.Opcode(data)
	if !ok {
		return
	}
	switch sess.Role {
	case session.RoleCharServer:
		s.dispatchCharFrame(sess, op, data)
	default:
		s.dispatchClientFrame(sess, op, data)
	}
}

func (s *Server) handleClose(id session.ID, reason string) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	if sess.Role == session.RoleCharServer && sess.Slot >= 0 {
		s.roster.Detach(sess.Slot)
		orphaned := s.presence.OrphanSlot(sess.Slot)
		if s.Metrics != nil {
			s.Metrics.CharServersOnline.Set(float64(s.roster.Count()))
			if orphaned > 0 {
				s.Metrics.PresenceOrphaned.Add(float64(orphaned))
			}
		}
	}
	s.sessions.Remove(id)
	s.observeSessionCount()
	s.Log.Debug("session closed", zap.Uint64("session", uint64(id)), zap.String("reason", reason))
}

func (s *Server) observeSessionCount() {
	if s.Metrics == nil {
		return
	}
	var clients, chars int
	s.sessions.Each(func(sess *session.Session) {
		if sess.Role == session.RoleCharServer {
			chars++
		} else {
			clients++
		}
	})
	s.Metrics.Sessions.WithLabelValues("client").Set(float64(clients))
	s.Metrics.Sessions.WithLabelValues("char_server").Set(float64(chars))
}

// scheduleDupLoginTimeout arranges for forceOfflineIfStillOnline to run on
// the dispatch loop AuthTimeoutSeconds from now, posted as an ordinary
// event so the timer goroutine itself never touches shared state.
func (s *Server) scheduleDupLoginTimeout(accountID int32) {
	s.Clock.AfterFunc(ticket.AuthTimeoutSeconds*time.Second, func() {
		s.cmdCh <- dupLoginTimeoutEvent{accountID: accountID}
	})
}

func (s *Server) writeFrame(sess *session.Session, frame []byte) {
	_ = sess.Conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	if _, err := sess.Conn.Write(frame); err != nil {
		s.Log.Debug("write failed", zap.Uint64("session", uint64(sess.ID)), zap.Error(err))
	}
}

// broadcastExcept sends frame to every connected char-server slot except
// excludeSlot (-1 to exclude none), matching charif_sendallwos.
func (s *Server) broadcastExcept(excludeSlot int, frame []byte) {
	s.roster.BroadcastWOS(excludeSlot, func(_ int, slot *roster.Slot) {
		sess, ok := s.sessions.Get(session.ID(slot.SessionID))
		if !ok {
			return
		}
		s.writeFrame(sess, frame)
	})
}
