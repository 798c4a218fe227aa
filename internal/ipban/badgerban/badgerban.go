// Package badgerban persists bans across restarts using badger's native
// key TTL, so an operator killing the process mid-ban does not reset the
// clock for that IP. Failure-window bookkeeping stays in-process (it needs
// to survive only up to the ban threshold, not a restart); only the ban
// verdict itself is durable.
package badgerban

import (
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"loginsrv/internal/ipban"
)

type Store struct {
	db  *badger.DB
	mem *ipban.MemStore
}

func Open(dir string, interval time.Duration, limit int, duration time.Duration) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("badgerban: open: %w", err)
	}
	return &Store{db: db, mem: ipban.NewMemStore(interval, limit, duration)}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func banKey(ip string) []byte { return []byte("ipban:" + ip) }

func (s *Store) RecordFailure(ip string, now time.Time) {
	s.mem.RecordFailure(ip, now)
	if until, ok := s.mem.BannedUntil(ip, now); ok {
		// Mirror the freshly-computed ban into badger with a matching TTL,
		// so a restart mid-ban does not reset the clock for this IP.
		_ = s.db.Update(func(txn *badger.Txn) error {
			e := badger.NewEntry(banKey(ip), []byte{1}).WithTTL(until.Sub(now))
			return txn.SetEntry(e)
		})
	}
}

func (s *Store) IsBanned(ip string, now time.Time) bool {
	if s.mem.IsBanned(ip, now) {
		return true
	}
	banned := false
	_ = s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(banKey(ip))
		banned = err == nil
		return nil
	})
	return banned
}

// ActiveCount delegates to the in-process window tracker, which is updated
// on every RecordFailure alongside the badger mirror. It counts only bans
// recorded since this process started: bans that survive a restart in
// badger are honoured by IsBanned but are not counted here.
func (s *Store) ActiveCount(now time.Time) int {
	return s.mem.ActiveCount(now)
}

func (s *Store) Sweep(now time.Time) {
	s.mem.Sweep(now)
	// badger's own TTL GC reclaims expired ban keys; nothing else to do.
}

var _ ipban.Store = (*Store)(nil)
