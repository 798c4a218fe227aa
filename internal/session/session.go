// Package session implements the per-connection state machine: a freshly
// accepted connection starts in RoleUnknown and is promoted to
// RoleClient or RoleCharServer by the first recognized opcode.
package session

import (
	"crypto/rand"
	"net"

	"loginsrv/internal/wire"
)

// Role tags which parser a session's frames are routed to. No inheritance
// is needed — a plain tagged variant plus a dispatch switch does the job.
type Role int

const (
	RoleUnknown Role = iota
	RoleClient
	RoleCharServer
)

// ID identifies a session for the lifetime of its connection. Assigned by
// the server's accept loop.
type ID uint64

// Session is the per-connection state held by the single dispatch-loop
// goroutine, which owns it exclusively.
type Session struct {
	ID      ID
	Conn    net.Conn
	Role    Role
	PeerIP  net.IP

	// Char-server role data.
	Slot int // -1 until promoted

	// Client role / in-progress credential state.
	ChallengeKey    []byte
	Userid          string
	Password        string
	PasswordMD5     [16]byte
	IsMD5           bool
	PasswordEncMode wire.PasswordEncMode
	ClientVersion   uint32
	AccountID       int32
	LoginID1        uint32
	LoginID2        uint32
	Sex             byte
}

// New returns a freshly accepted session in RoleUnknown.
func New(id ID, conn net.Conn) *Session {
	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	return &Session{
		ID:     id,
		Conn:   conn,
		Role:   RoleUnknown,
		PeerIP: net.ParseIP(host),
		Slot:   -1,
	}
}

// GenerateChallengeKey produces a random key of length 12+rand()%4, bytes
// in [1,255], for the 0x01db challenge-key exchange.
func GenerateChallengeKey() ([]byte, error) {
	var lenByte [1]byte
	if _, err := rand.Read(lenByte[:]); err != nil {
		return nil, err
	}
	n := 12 + int(lenByte[0]%4)
	key := make([]byte, n)
	for i := range key {
		var b [1]byte
		for {
			if _, err := rand.Read(b[:]); err != nil {
				return nil, err
			}
			if b[0] != 0 {
				break
			}
		}
		key[i] = b[0]
	}
	return key, nil
}

// Registry owns every live session, keyed by ID. It is written only by the
// single dispatch-loop goroutine: no locking.
type Registry struct {
	sessions map[ID]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[ID]*Session)}
}

func (r *Registry) Add(s *Session) { r.sessions[s.ID] = s }

func (r *Registry) Get(id ID) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id ID) { delete(r.sessions, id) }

func (r *Registry) Len() int { return len(r.sessions) }

// Each calls fn for every live session. fn must not add or remove sessions.
func (r *Registry) Each(fn func(*Session)) {
	for _, s := range r.sessions {
		fn(s)
	}
}
