// Package badgerstore is the file-backed variant of the account.Store
// capability, an embedded KV database standing in for the original
// server's flat-file account database. Key layout and transaction shape
// follow the badger metadata store in the retrieval pack.
package badgerstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"loginsrv/internal/account"
)

// Store is a badger-backed account.Store.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func keyByID(id int32) []byte {
	return []byte(fmt.Sprintf("account:id:%010d", id))
}

func keyByName(userid string) []byte {
	return []byte("account:name:" + userid)
}

var keyNextID = []byte("account:nextid")

func encode(a account.Account) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(raw []byte) (account.Account, error) {
	var a account.Account
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&a); err != nil {
		return account.Account{}, err
	}
	return a, nil
}

func (s *Store) LoadByID(id int32) (account.Account, bool, error) {
	var a account.Account
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyByID(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decErr error
			a, decErr = decode(val)
			return decErr
		})
	})
	if err != nil {
		return account.Account{}, false, err
	}
	return a, a.ID != 0, nil
}

func (s *Store) LoadByName(userid string) (account.Account, bool, error) {
	var id int32
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyByName(userid))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = int32(binary.BigEndian.Uint32(val))
			found = true
			return nil
		})
	})
	if err != nil || !found {
		return account.Account{}, false, err
	}
	return s.LoadByID(id)
}

func (s *Store) Create(a account.Account) (account.Account, error) {
	err := s.db.Update(func(txn *badger.Txn) error {
		next := int64(account.StartAccountNum)
		if item, err := txn.Get(keyNextID); err == nil {
			if verr := item.Value(func(val []byte) error {
				next = int64(binary.BigEndian.Uint64(val))
				return nil
			}); verr != nil {
				return verr
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		a.ID = int32(next)

		raw, err := encode(a)
		if err != nil {
			return err
		}
		if err := txn.Set(keyByID(a.ID), raw); err != nil {
			return err
		}
		var idBuf [4]byte
		binary.BigEndian.PutUint32(idBuf[:], uint32(a.ID))
		if err := txn.Set(keyByName(a.Userid), idBuf[:]); err != nil {
			return err
		}
		var nextBuf [8]byte
		binary.BigEndian.PutUint64(nextBuf[:], uint64(next+1))
		return txn.Set(keyNextID, nextBuf[:])
	})
	if err != nil {
		return account.Account{}, err
	}
	return a, nil
}

func (s *Store) Save(a account.Account) error {
	raw, err := encode(a)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyByID(a.ID), raw)
	})
}

func (s *Store) Iterate(fn func(account.Account) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("account:id:")
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var cont bool
			err := it.Item().Value(func(val []byte) error {
				a, err := decode(val)
				if err != nil {
					return err
				}
				cont = fn(a)
				return nil
			})
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

var _ account.Store = (*Store)(nil)
