package server

import (
	"context"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"loginsrv/internal/account"
	"loginsrv/internal/clock"
	"loginsrv/internal/config"
	"loginsrv/internal/ipban"
	"loginsrv/internal/logging"
	"loginsrv/internal/wire"
)

// TestMain verifies the accept loop, dispatch loop, and every per-connection
// reader goroutine it spawns are gone once every test in this package has
// returned.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memStore struct {
	byName map[string]account.Account
	nextID int32
}

func newMemStore() *memStore {
	return &memStore{byName: make(map[string]account.Account), nextID: account.StartAccountNum}
}

func (s *memStore) LoadByID(id int32) (account.Account, bool, error) {
	for _, a := range s.byName {
		if a.ID == id {
			return a, true, nil
		}
	}
	return account.Account{}, false, nil
}

func (s *memStore) LoadByName(userid string) (account.Account, bool, error) {
	a, ok := s.byName[userid]
	return a, ok, nil
}

func (s *memStore) Create(a account.Account) (account.Account, error) {
	a.ID = s.nextID
	s.nextID++
	s.byName[a.Userid] = a
	return a, nil
}

func (s *memStore) Save(a account.Account) error {
	s.byName[a.Userid] = a
	return nil
}

func (s *memStore) Iterate(fn func(account.Account) bool) error {
	for _, a := range s.byName {
		if !fn(a) {
			break
		}
	}
	return nil
}

// startTestServer wires a Server with in-memory collaborators and runs it
// on an ephemeral port until the test's cleanup runs, returning its address.
func startTestServer(t *testing.T, store *memStore, cfg config.Config) string {
	t.Helper()
	log := zap.NewNop()
	ban := ipban.NewMemStore(5*time.Minute, 1000, time.Minute)
	srv := New(cfg, store, ban, nil, nil, clock.Real{}, log, &logging.LoginLog{}, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv.listener = ln

	ctx, cancel := context.WithCancel(context.Background())

	// Run manages its own listener; reuse the one already bound instead of
	// letting Run create another, by driving the loops directly.
	go srv.dispatchLoop(ctx)
	go srv.runPeriodicTasks(ctx)
	go func() {
		_ = srv.acceptLoop(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		_ = ln.Close()
	})

	return ln.Addr().String()
}

func encodeLoginV1(userid, password string, version uint32) []byte {
	buf := make([]byte, 55)
	binary.LittleEndian.PutUint16(buf[0:2], wire.ClientLoginV1)
	binary.LittleEndian.PutUint32(buf[2:6], version)
	copy(buf[6:30], userid)
	copy(buf[30:54], password)
	return buf
}

// TestFreshAutoRegisterNoCharServersForcesClose exercises end-to-end
// scenario 1: an auto-registering client authenticates successfully but,
// with zero char-servers attached, receives the 0x81 code-1 force-close
// instead of a server list.
func TestFreshAutoRegisterNoCharServersForcesClose(t *testing.T) {
	store := newMemStore()
	cfg := config.Default()
	cfg.NewAccount = true
	cfg.AllowedRegs = 1
	cfg.TimeAllowed = 10 * time.Second

	addr := startTestServer(t, store, cfg)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(encodeLoginV1("alice_F", "secret", cfg.ClientVersionToConnect)); err != nil {
		t.Fatalf("write: %v", err)
	}

	reply := make([]byte, 8)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(reply)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if n < 3 {
		t.Fatalf("short reply: %d bytes", n)
	}
	op := binary.LittleEndian.Uint16(reply[0:2])
	if op != wire.ServerForceClose {
		t.Fatalf("expected force-close opcode 0x%04x, got 0x%04x", wire.ServerForceClose, op)
	}
	if reply[2] != 1 {
		t.Fatalf("expected force-close code 1, got %d", reply[2])
	}

	acc, found, _ := store.LoadByName("alice")
	if !found {
		t.Fatal("expected account alice to have been auto-registered")
	}
	if acc.Sex != account.SexFemale {
		t.Fatalf("expected sex F, got %c", acc.Sex)
	}
}

// TestBadPasswordRepliesWithLoginFail exercises the plain failure path: an
// existing account with a wrong password gets 0x6a code 1.
func TestBadPasswordRepliesWithLoginFail(t *testing.T) {
	store := newMemStore()
	store.byName["bob"] = account.Account{ID: 2000001, Userid: "bob", Password: "right", Email: account.DefaultEmail}
	cfg := config.Default()

	addr := startTestServer(t, store, cfg)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(encodeLoginV1("bob", "wrong", cfg.ClientVersionToConnect)); err != nil {
		t.Fatalf("write: %v", err)
	}

	reply := make([]byte, 32)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(reply)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	op := binary.LittleEndian.Uint16(reply[0:2])
	if op != wire.ServerLoginFail {
		t.Fatalf("expected login-fail opcode, got 0x%04x", op)
	}
	if n < 3 || reply[2] != uint8(wire.ResultBadPassword) {
		t.Fatalf("expected bad-password code, got %v", reply[:n])
	}
}
