package auth

import (
	"context"
	"net"
	"testing"
	"time"

	"loginsrv/internal/account"
	"loginsrv/internal/clock"
	"loginsrv/internal/config"
	"loginsrv/internal/ipban"
	"loginsrv/internal/wire"
)

type fakeStore struct {
	byName map[string]account.Account
	nextID int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{byName: make(map[string]account.Account), nextID: account.StartAccountNum}
}

func (s *fakeStore) LoadByID(id int32) (account.Account, bool, error) {
	for _, a := range s.byName {
		if a.ID == id {
			return a, true, nil
		}
	}
	return account.Account{}, false, nil
}

func (s *fakeStore) LoadByName(userid string) (account.Account, bool, error) {
	a, ok := s.byName[userid]
	return a, ok, nil
}

func (s *fakeStore) Create(a account.Account) (account.Account, error) {
	a.ID = s.nextID
	s.nextID++
	s.byName[a.Userid] = a
	return a, nil
}

func (s *fakeStore) Save(a account.Account) error {
	s.byName[a.Userid] = a
	return nil
}

func (s *fakeStore) Iterate(fn func(account.Account) bool) error {
	for _, a := range s.byName {
		if !fn(a) {
			break
		}
	}
	return nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) AfterFunc(d time.Duration, f func()) interface{ Stop() bool } {
	return nil
}

func newPipeline(store *fakeStore, now time.Time) *Pipeline {
	return &Pipeline{
		Store:      store,
		IPBan:      ipban.NewMemStore(5*time.Minute, 1000, time.Minute),
		Cfg:        config.Default(),
		Clock:      testClock{now},
		RandUint32: func() uint32 { return 42 },
	}
}

type testClock struct{ t time.Time }

func (c testClock) Now() time.Time { return c.t }
func (c testClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	return nil
}

func TestFreshAutoRegister(t *testing.T) {
	store := newFakeStore()
	p := newPipeline(store, time.Unix(1000, 0))
	p.Cfg.NewAccount = true
	p.Cfg.AllowedRegs = 1
	p.Cfg.TimeAllowed = 10 * time.Second

	out := p.Authenticate(context.Background(), Request{
		PeerIP:   net.ParseIP("1.2.3.4"),
		Userid:   "alice_F",
		Password: "secret",
	})

	if out.Code != Success {
		t.Fatalf("expected success, got code %d", out.Code)
	}
	if out.Account.Sex != account.SexFemale {
		t.Fatalf("expected sex F, got %c", out.Account.Sex)
	}
	if out.Account.Userid != "alice" {
		t.Fatalf("expected stripped userid alice, got %s", out.Account.Userid)
	}
}

func TestBadPasswordTriggersBan(t *testing.T) {
	store := newFakeStore()
	store.byName["bob"] = account.Account{ID: 2000001, Userid: "bob", Password: "right"}
	p := newPipeline(store, time.Unix(1000, 0))
	p.IPBan = ipban.NewMemStore(5*time.Minute, 1, time.Minute)

	out := p.Authenticate(context.Background(), Request{
		PeerIP:   net.ParseIP("5.6.7.8"),
		Userid:   "bob",
		Password: "wrong",
	})
	if out.Code != wire.ResultBadPassword {
		t.Fatalf("expected bad password, got %d", out.Code)
	}
	if !p.IPBan.IsBanned("5.6.7.8", time.Unix(1000, 0)) {
		t.Fatal("expected the failure to ban the IP at a ban limit of 1")
	}
}

func TestBanEnforcement(t *testing.T) {
	store := newFakeStore()
	store.byName["carol"] = account.Account{
		ID: 2000002, Userid: "carol", Password: "secret", UnbanTime: 1000 + 3600,
	}
	p := newPipeline(store, time.Unix(1000, 0))

	out := p.Authenticate(context.Background(), Request{
		PeerIP:   net.ParseIP("9.9.9.9"),
		Userid:   "carol",
		Password: "secret",
	})
	if out.Code != wire.ResultBanned {
		t.Fatalf("expected banned, got %d", out.Code)
	}
	if out.BanUntil != 1000+3600 {
		t.Fatalf("unexpected ban until %d", out.BanUntil)
	}
}

func TestExpiredAccount(t *testing.T) {
	store := newFakeStore()
	store.byName["dave"] = account.Account{ID: 2000003, Userid: "dave", Password: "secret", Expiration: 999}
	p := newPipeline(store, time.Unix(1000, 0))

	out := p.Authenticate(context.Background(), Request{PeerIP: net.ParseIP("1.1.1.1"), Userid: "dave", Password: "secret"})
	if out.Code != wire.ResultExpired {
		t.Fatalf("expected expired, got %d", out.Code)
	}
}

func TestUnregisteredAccount(t *testing.T) {
	store := newFakeStore()
	p := newPipeline(store, time.Unix(1000, 0))

	out := p.Authenticate(context.Background(), Request{PeerIP: net.ParseIP("1.1.1.1"), Userid: "nobody", Password: "x"})
	if out.Code != wire.ResultUnregistered {
		t.Fatalf("expected unregistered, got %d", out.Code)
	}
}
