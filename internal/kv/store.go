// Package kv implements C1, the embedded key/value store: a memory-mapped
// store with named sub-databases and per-entry TTL metadata.
//
// The wrapper shape (Open returning a struct embedding the underlying
// database handle, bucket-per-namespace helpers) is grounded on
// evalgo-org-eve's db/bolt package; this version adds the TTL header spec.md
// §4.1 requires (bbolt itself has no notion of expiry) and an Iter that
// hands entries to a callback one at a time instead of loading a whole
// bucket.
package kv

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Akaere-NetWorks/whois-server/internal/errors"
)

// headerLen is the size of the expiry header stored before every value;
// an all-zero header marks an entry with no TTL.
const headerLen = 8

// Store is the embedded KV store. Each "sub-db" from spec.md is a bbolt
// bucket; sub-dbs are declared at Open time so every writer transaction
// only ever touches buckets that are known to exist.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the store at path and ensures each named
// sub-db exists as a bucket. A failure here is fatal per spec.md §7.
func Open(path string, subDBs []string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.StorageOpenError(err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range subDBs {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create sub-db %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.StorageOpenError(err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying file and memory map.
func (s *Store) Close() error {
	return s.db.Close()
}

// encodeEntry prepends an 8-byte big-endian Unix-nano expiry (0 = no expiry)
// to value, matching spec.md's "fixed-size header" requirement.
func encodeEntry(value []byte, expiresAt time.Time) []byte {
	var expNano int64
	if !expiresAt.IsZero() {
		expNano = expiresAt.UnixNano()
	}
	buf := make([]byte, headerLen+len(value))
	binary.BigEndian.PutUint64(buf[:headerLen], uint64(expNano))
	copy(buf[headerLen:], value)
	return buf
}

// decodeEntry splits a stored entry back into its value and expiry. ok is
// false if the header is malformed (corruption case, spec.md §4.1).
func decodeEntry(raw []byte) (value []byte, expiresAt time.Time, ok bool) {
	if len(raw) < headerLen {
		return nil, time.Time{}, false
	}
	expNano := int64(binary.BigEndian.Uint64(raw[:headerLen]))
	if expNano != 0 {
		expiresAt = time.Unix(0, expNano)
	}
	return raw[headerLen:], expiresAt, true
}

func expired(expiresAt time.Time, now time.Time) bool {
	return !expiresAt.IsZero() && !expiresAt.After(now)
}

// Put writes value to key in sub-db. ttl of zero means no expiry.
func (s *Store) Put(subDB, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	entry := encodeEntry(value, expiresAt)

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(subDB))
		if b == nil {
			return fmt.Errorf("sub-db not found: %s", subDB)
		}
		return b.Put([]byte(key), entry)
	})
	if err != nil {
		return errors.Wrap(errors.KindStorage, "put", err)
	}
	return nil
}

// Get returns the value for key in sub-db, or ok=false on miss or expiry.
// A storage read failure (corruption) is treated as a miss, per spec.md §7.
func (s *Store) Get(subDB, key string) (value []byte, ok bool) {
	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(subDB))
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		v, expiresAt, decOK := decodeEntry(raw)
		if !decOK || expired(expiresAt, time.Now()) {
			return nil
		}
		value = append([]byte(nil), v...)
		ok = true
		return nil
	})
	return value, ok
}

// Delete removes key from sub-db. Deleting an absent key is not an error.
func (s *Store) Delete(subDB, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(subDB))
		if b == nil {
			return fmt.Errorf("sub-db not found: %s", subDB)
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return errors.Wrap(errors.KindStorage, "delete", err)
	}
	return nil
}

// Entry is one (key, value) pair yielded by Iter; expired entries are
// always skipped (SweepExpired walks the bucket with its own cursor to
// find what to delete).
type Entry struct {
	Key   string
	Value []byte
}

// Iter calls fn for every live entry in sub-db whose key has the given
// prefix, in key order. Returning a non-nil error from fn stops iteration
// early and Iter returns that error.
func (s *Store) Iter(subDB, prefix string, fn func(Entry) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(subDB))
		if b == nil {
			return fmt.Errorf("sub-db not found: %s", subDB)
		}
		c := b.Cursor()
		p := []byte(prefix)
		now := time.Now()
		for k, raw := c.Seek(p); k != nil && hasPrefix(k, p); k, raw = c.Next() {
			v, expiresAt, ok := decodeEntry(raw)
			if !ok || expired(expiresAt, now) {
				continue
			}
			if err := fn(Entry{Key: string(k), Value: append([]byte(nil), v...)}); err != nil {
				return err
			}
		}
		return nil
	})
}

func hasPrefix(k, prefix []byte) bool {
	if len(prefix) == 0 {
		return true
	}
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// SweepExpired removes every expired entry across subDBs and returns the
// count removed. Invoked periodically by C11; readers never block on it
// beyond bbolt's own single-writer-per-transaction discipline.
func (s *Store) SweepExpired(subDBs []string) (int, error) {
	removed := 0
	now := time.Now()
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range subDBs {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var deadKeys [][]byte
			c := b.Cursor()
			for k, raw := c.First(); k != nil; k, raw = c.Next() {
				_, expiresAt, ok := decodeEntry(raw)
				if ok && expired(expiresAt, now) {
					deadKeys = append(deadKeys, append([]byte(nil), k...))
				}
			}
			for _, k := range deadKeys {
				if err := b.Delete(k); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return removed, errors.Wrap(errors.KindStorage, "sweep", err)
	}
	return removed, nil
}
