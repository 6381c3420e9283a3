package cache

import (
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerTier is the shared cache tier backed by an embedded badger store.
// Entries carry per-key TTLs enforced by badger itself.
type BadgerTier struct {
	db *badger.DB
}

// NewBadgerTier opens the badger store at dir
func NewBadgerTier(dir string) (*BadgerTier, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store at %s: %w", dir, err)
	}
	return &BadgerTier{db: db}, nil
}

// Get returns the value for key. The bool reports presence; a non-nil
// error means the tier itself failed, not that the key was absent.
func (bt *BadgerTier) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := bt.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache read failed: %w", err)
	}
	return value, true, nil
}

// Put stores a value with the given TTL
func (bt *BadgerTier) Put(key string, value []byte, ttl time.Duration) error {
	err := bt.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache write failed: %w", err)
	}
	return nil
}

// Close closes the underlying store
func (bt *BadgerTier) Close() error {
	return bt.db.Close()
}
