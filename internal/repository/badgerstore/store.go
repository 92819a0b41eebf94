// Package badgerstore is an embedded repository.Store on BadgerDB. It backs
// single-node deployments and the service tests.
package badgerstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/vedran77/ourchat/internal/repository"
)

// Key layout. Index keys carry no value.
const (
	prefixUser        = "user:"
	prefixUsername    = "username:"
	prefixRequest     = "request:"
	prefixRequestPair = "request_pair:"
	prefixRequestIn   = "request_in:"
	prefixRequestOut  = "request_out:"
	prefixChat        = "chat:"
	prefixDirect      = "direct:"
	prefixMember      = "member:"
	prefixPairLock    = "pairlock:"
)

type Store struct {
	db  *badger.DB
	log *slog.Logger
}

func New(db *badger.DB, log *slog.Logger) *Store {
	return &Store{db: db, log: log}
}

// OpenInMemory opens a throwaway store, mostly for tests.
func OpenInMemory(log *slog.Logger) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, errors.Wrap(err, "open in-memory badger")
	}
	return New(db, log), nil
}

func (s *Store) Users() repository.UserRepository   { return &userRepo{db: s.db} }
func (s *Store) Requests() repository.RequestReader { return &requestReader{db: s.db} }
func (s *Store) Chats() repository.ChatReader       { return &chatReader{db: s.db} }

// InTx runs fn inside a read-write badger transaction. Badger detects
// read-write conflicts at commit time and reports badger.ErrConflict.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn})
	})
	if errors.Is(err, badger.ErrConflict) {
		s.log.Debug("transaction conflict", "error", err)
		return repository.ErrConflict
	}
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func getJSON(txn *badger.Txn, key string, v any) (bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "get %s", key)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
	return true, errors.Wrapf(err, "decode %s", key)
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return errors.Wrapf(txn.Set([]byte(key), data), "set %s", key)
}

func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "get %s", key)
	}
	return true, nil
}

func getString(txn *badger.Txn, key string) (string, bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get %s", key)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", false, errors.Wrapf(err, "read %s", key)
	}
	return string(val), true, nil
}

func del(txn *badger.Txn, keys ...string) error {
	for _, key := range keys {
		if err := txn.Delete([]byte(key)); err != nil {
			return errors.Wrapf(err, "delete %s", key)
		}
	}
	return nil
}

// keySuffixes returns what follows prefix for every key under it.
func keySuffixes(txn *badger.Txn, prefix string) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)

	it := txn.NewIterator(opts)
	defer it.Close()

	var out []string
	for it.Rewind(); it.Valid(); it.Next() {
		out = append(out, strings.TrimPrefix(string(it.Item().Key()), prefix))
	}
	return out
}
