package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"go.hackfix.me/forage/store"
)

// The items bucket maps keys to values, prefixed with the 8 byte insertion
// sequence number of the key. The order bucket maps sequence numbers back to
// keys, and since bbolt keeps keys sorted, a cursor over it yields keys in
// insertion order.
var (
	itemsBucket = []byte("items")
	orderBucket = []byte("order")
)

const seqLen = 8

// Bolt is a Store backed by a bbolt database file.
type Bolt struct {
	db *bolt.DB
}

var _ store.Store = &Bolt{}

// Open opens or creates the database file at path.
func Open(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed opening bbolt store at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{itemsBucket, orderBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed creating buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

func (s *Bolt) Close() error {
	return s.db.Close()
}

func (s *Bolt) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(itemsBucket).Get([]byte(key))
		if data == nil {
			return store.ErrNotFound
		}
		val = clone(data[seqLen:])
		return nil
	})
	if err != nil {
		return nil, err
	}

	return val, nil
}

func (s *Bolt) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		items, order := tx.Bucket(itemsBucket), tx.Bucket(orderBucket)

		seq := make([]byte, seqLen)
		if data := items.Get([]byte(key)); data != nil {
			copy(seq, data[:seqLen])
		} else {
			n, err := order.NextSequence()
			if err != nil {
				return err
			}
			binary.BigEndian.PutUint64(seq, n)
			if err = order.Put(seq, []byte(key)); err != nil {
				return err
			}
		}

		return items.Put([]byte(key), append(seq, value...))
	})
}

func (s *Bolt) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return remove(tx, []byte(key))
	})
}

func (s *Bolt) Clear(_ context.Context, prefix string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var keys [][]byte
		c := tx.Bucket(orderBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if strings.HasPrefix(string(v), prefix) {
				keys = append(keys, clone(v))
			}
		}

		// Deleting while iterating with a cursor skips entries.
		for _, key := range keys {
			if err := remove(tx, key); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *Bolt) Keys(_ context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(orderBucket).ForEach(func(_, v []byte) error {
			if key := string(v); strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

func (s *Bolt) MultiGet(_ context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	err := s.db.View(func(tx *bolt.Tx) error {
		items := tx.Bucket(itemsBucket)
		for _, key := range keys {
			if data := items.Get([]byte(key)); data != nil {
				result[key] = clone(data[seqLen:])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func remove(tx *bolt.Tx, key []byte) error {
	items, order := tx.Bucket(itemsBucket), tx.Bucket(orderBucket)

	data := items.Get(key)
	if data == nil {
		return nil
	}
	seq := clone(data[:seqLen])

	if err := order.Delete(seq); err != nil {
		return err
	}

	return items.Delete(key)
}

// clone copies data out of a bbolt page, which is only valid for the life of
// the transaction.
func clone(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
