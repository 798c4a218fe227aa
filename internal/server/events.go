package server

import "loginsrv/internal/session"

// event is the sum type flowing through Server.cmdCh. Only the dispatch
// loop goroutine ever receives from this channel.
type event interface{ isEvent() }

type newConnEvent struct{ sess *session.Session }

func (newConnEvent) isEvent() {}

type frameEvent struct {
	id   session.ID
	data []byte
}

func (frameEvent) isEvent() {}

type closeEvent struct {
	id     session.ID
	reason string
}

func (closeEvent) isEvent() {}

type shutdownEvent struct{}

func (shutdownEvent) isEvent() {}

type ipSyncTickEvent struct{}

func (ipSyncTickEvent) isEvent() {}

type presenceSweepTickEvent struct{}

func (presenceSweepTickEvent) isEvent() {}

type ticketSweepTickEvent struct{}

func (ticketSweepTickEvent) isEvent() {}

// dupLoginTimeoutEvent fires AuthTimeoutSeconds after a duplicate-login
// kick was broadcast, forcing the old presence offline if the owning
// char-server never confirmed it with a 0x272c.
type dupLoginTimeoutEvent struct{ accountID int32 }

func (dupLoginTimeoutEvent) isEvent() {}

type banSweepTickEvent struct{}

func (banSweepTickEvent) isEvent() {}

type gmReloadTickEvent struct{}

func (gmReloadTickEvent) isEvent() {}

// consoleEvent carries one line read from stdin by consoleLoop, posted to
// the dispatch loop so console commands participate in the same
// single-writer invariant as every other piece of shared state.
type consoleEvent struct{ cmd string }

func (consoleEvent) isEvent() {}
