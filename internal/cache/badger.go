package cache

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

const badgerPrefix = "cache/"

// BadgerCache relies on badger's native per-entry TTL. Badger tracks expiry
// with second granularity.
type BadgerCache struct {
	db *badger.DB
}

func NewBadgerCache(db *badger.DB) *BadgerCache {
	return &BadgerCache{db: db}
}

func cacheKey(key string) []byte {
	return []byte(badgerPrefix + key)
}

func (c *BadgerCache) GetAll(_ context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	err := c.db.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get(cacheKey(k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				out[k] = string(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cache: %w", err)
	}
	return out, nil
}

// PutAll writes all entries in one batch. A non-positive expiration never expires.
func (c *BadgerCache) PutAll(_ context.Context, entries map[string]Entry) error {
	if len(entries) == 0 {
		return nil
	}
	wb := c.db.NewWriteBatch()
	defer wb.Cancel()

	for k, e := range entries {
		entry := badger.NewEntry(cacheKey(k), []byte(e.Value))
		if e.Expiration > 0 {
			entry = entry.WithTTL(e.Expiration)
		}
		if err := wb.SetEntry(entry); err != nil {
			return fmt.Errorf("failed to stage cache entry %q: %w", k, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

func (c *BadgerCache) RemoveAll(_ context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	wb := c.db.NewWriteBatch()
	defer wb.Cancel()

	for _, k := range keys {
		if err := wb.Delete(cacheKey(k)); err != nil {
			return fmt.Errorf("failed to stage cache removal %q: %w", k, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to remove cache entries: %w", err)
	}
	return nil
}
