package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

const badgerPrefix = "store/"

// OpenBadger opens a badger database at dir. An empty dir opens an in-memory
// database, which is what tests use.
func OpenBadger(dir string) (*badger.DB, error) {
	var opts badger.Options
	if strings.TrimSpace(dir) == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", dir, err)
	}
	return db, nil
}

// BadgerStore persists keys under a prefix so the same database can also
// back the expiring cache.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func storeKey(key string) []byte {
	return []byte(badgerPrefix + key)
}

func (s *BadgerStore) Get(_ context.Context, key string) (string, bool, error) {
	var (
		out   string
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		v, ok, err := readString(txn, storeKey(key))
		out, found = v, ok
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return out, found, nil
}

func (s *BadgerStore) Set(_ context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) GetOrSet(_ context.Context, key, value string) (string, error) {
	out := value
	err := s.db.Update(func(txn *badger.Txn) error {
		existing, ok, err := readString(txn, storeKey(key))
		if err != nil {
			return err
		}
		if ok && existing != "" {
			out = existing
			return nil
		}
		return txn.Set(storeKey(key), []byte(value))
	})
	if err != nil {
		return "", fmt.Errorf("failed to get or set %q: %w", key, err)
	}
	return out, nil
}

func (s *BadgerStore) Increment(_ context.Context, key string) (int64, error) {
	var n int64
	err := s.db.Update(func(txn *badger.Txn) error {
		existing, _, err := readString(txn, storeKey(key))
		if err != nil {
			return err
		}
		n = parseCounter(existing)
		return txn.Set(storeKey(key), []byte(strconv.FormatInt(n+1, 10)))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment %q: %w", key, err)
	}
	return n, nil
}

func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(storeKey(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(badgerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), badgerPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

func readString(txn *badger.Txn, key []byte) (string, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var out string
	err = item.Value(func(val []byte) error {
		out = string(val)
		return nil
	})
	return out, err == nil, err
}
