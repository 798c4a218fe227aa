package server

import (
	"bufio"
	"context"
	"os"
	"strings"

	"go.uber.org/zap"

	"loginsrv/internal/session"
)

// consoleLoop reads one command per line from stdin and posts it to the
// dispatch loop as a consoleEvent, reviving the original server's
// "shutdown"/"alive"/"status"/"help" stdin console under the config key
// console: true. It never touches shared state directly.
func (s *Server) consoleLoop(ctx context.Context) {
	sc := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			cmd := strings.TrimSpace(line)
			if cmd == "" {
				continue
			}
			select {
			case s.cmdCh <- consoleEvent{cmd: cmd}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleConsoleCommand implements the small set of operator commands the
// original login server accepted on stdin: shutdown, alive, status, help.
func (s *Server) handleConsoleCommand(cmd string) {
	switch cmd {
	case "shutdown":
		s.Log.Info("console: shutdown requested")
		if s.cancel != nil {
			s.cancel()
		}
	case "alive":
		s.Log.Info("console: alive")
	case "status":
		var clients, chars int
		s.sessions.Each(func(sess *session.Session) {
			if sess.Role == session.RoleCharServer {
				chars++
			} else {
				clients++
			}
		})
		s.Log.Info("console: status",
			zap.Int("client_sessions", clients),
			zap.Int("char_server_sessions", chars),
			zap.Int("char_servers_attached", s.roster.Count()),
		)
	case "help":
		s.Log.Info("console: commands are shutdown, alive, status, help")
	default:
		s.Log.Info("console: unrecognized command", zap.String("cmd", cmd))
	}
}
