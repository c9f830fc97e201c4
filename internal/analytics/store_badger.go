// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package analytics

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key layout:
//
//	session:<id>   JSON Session
//	order:<seq>    session id, seq is a big-endian uint64 so keys sort by age
//	seqof:<id>     the seq of that session
//	user:<key>     user id
const (
	sessionKeyPrefix = "session:"
	orderKeyPrefix   = "order:"
	seqOfKeyPrefix   = "seqof:"
	userKeyPrefix    = "user:"
	sequenceKey      = "meta:sequence"
)

// BadgerStore is a Store that survives restarts.
type BadgerStore struct {
	db       *badger.DB
	seq      *badger.Sequence
	capacity int
	ownsDB   bool

	// Saves are read-modify-write over the order index; serializing them
	// avoids transaction conflicts.
	mu sync.Mutex
}

// OpenBadgerStore opens (or creates) a store in dir.
func OpenBadgerStore(dir string, capacity int) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}

	s, err := NewBadgerStore(db, capacity)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewBadgerStore uses an already open database. Close does not close db.
func NewBadgerStore(db *badger.DB, capacity int) (*BadgerStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	seq, err := db.GetSequence([]byte(sequenceKey), 64)
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq, capacity: capacity}, nil
}

func orderKey(seq uint64) []byte {
	key := make([]byte, len(orderKeyPrefix)+8)
	copy(key, orderKeyPrefix)
	binary.BigEndian.PutUint64(key[len(orderKeyPrefix):], seq)
	return key
}

// Save stores s.
func (b *BadgerStore) Save(_ context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sessionKey := []byte(sessionKeyPrefix + s.SessionID)

	exists := false
	err = b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(sessionKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}

	if exists {
		return b.db.Update(func(txn *badger.Txn) error {
			return txn.Set(sessionKey, data)
		})
	}

	seq, err := b.seq.Next()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(sessionKey, data); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		seqBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(seqBytes, seq)
		if err := txn.Set([]byte(seqOfKeyPrefix+s.SessionID), seqBytes); err != nil {
			return fmt.Errorf("set seq: %w", err)
		}
		if err := txn.Set(orderKey(seq), []byte(s.SessionID)); err != nil {
			return fmt.Errorf("set order: %w", err)
		}
		return b.evict(txn)
	})
}

// evict deletes the oldest sessions until at most capacity remain. It sees
// the writes of txn.
func (b *BadgerStore) evict(txn *badger.Txn) error {
	type entry struct {
		key []byte
		id  string
	}
	var order []entry

	opts := badger.DefaultIteratorOptions
	prefix := []byte(orderKeyPrefix)
	it := txn.NewIterator(opts)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		id, err := item.ValueCopy(nil)
		if err != nil {
			it.Close()
			return fmt.Errorf("read order: %w", err)
		}
		order = append(order, entry{key: item.KeyCopy(nil), id: string(id)})
	}
	it.Close()

	for i := 0; i < len(order)-b.capacity; i++ {
		e := order[i]
		for _, key := range [][]byte{e.key, []byte(sessionKeyPrefix + e.id), []byte(seqOfKeyPrefix + e.id)} {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("evict %s: %w", e.id, err)
			}
		}
	}
	return nil
}

// List returns sessions oldest first.
func (b *BadgerStore) List(_ context.Context) ([]Session, error) {
	var sessions []Session

	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(orderKeyPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			item, err := txn.Get([]byte(sessionKeyPrefix + string(id)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}

			var s Session
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			}); err != nil {
				return fmt.Errorf("decode session %s: %w", id, err)
			}
			sessions = append(sessions, s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Clear drops all sessions.
func (b *BadgerStore) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.db.DropPrefix([]byte(sessionKeyPrefix), []byte(orderKeyPrefix), []byte(seqOfKeyPrefix)); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}

// UserID returns the user id for key.
func (b *BadgerStore) UserID(_ context.Context, key string) (string, bool, error) {
	var id string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userKeyPrefix + key))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		id = string(val)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get user id: %w", err)
	}
	return id, true, nil
}

// SetUserID records the user id for key.
func (b *BadgerStore) SetUserID(_ context.Context, key, userID string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(userKeyPrefix+key), []byte(userID))
	})
}

// Close releases the sequence and, when the store opened it, the database.
func (b *BadgerStore) Close() error {
	var errs []error
	if err := b.seq.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release sequence: %w", err))
	}
	if b.ownsDB {
		if err := b.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close badger: %w", err))
		}
	}
	return errors.Join(errs...)
}
