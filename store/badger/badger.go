package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"go.hackfix.me/forage/store"
)

// Values are stored under valuePrefix+key, prefixed with the 8 byte insertion
// sequence number of the key. A second index under orderPrefix+seq maps back
// to the key, so iterating it yields keys in insertion order.
var (
	valuePrefix = []byte("v/")
	orderPrefix = []byte("o/")
	seqKey      = []byte("!seq")
)

const seqLen = 8

// Badger is a Store backed by a BadgerDB database.
type Badger struct {
	db  *badger.DB
	seq *badger.Sequence
	// Writes read the key's sequence before updating it, so concurrent
	// transactions on the same key would fail with badger.ErrConflict.
	writeMx sync.Mutex
}

var _ store.Store = &Badger{}

// Option is a function that allows configuring the store.
type Option func(*badger.Options)

// WithEncryptionKey enables encryption at rest. The key must be either 16, 24,
// or 32 bytes, for AES-128, AES-192 or AES-256 respectively.
func WithEncryptionKey(key []byte) Option {
	return func(opts *badger.Options) {
		if len(key) == 0 {
			return
		}
		*opts = opts.WithEncryptionKey(key).WithIndexCacheSize(100 << 20)
	}
}

// WithLogger routes BadgerDB logs to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *badger.Options) {
		if logger == nil {
			opts.Logger = nil
			return
		}
		opts.Logger = &slogAdapter{logger: logger.With("component", "badger")}
	}
}

// Open opens the database at path. If path is empty, the database is kept in
// memory.
func Open(path string, options ...Option) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithInMemory(path == "")
	opts.Logger = nil
	for _, opt := range options {
		opt(&opts)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	seq, err := db.GetSequence(seqKey, 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed initializing key sequence: %w", err)
	}

	return &Badger{db: db, seq: seq}, nil
}

func (s *Badger) Close() error {
	relErr := s.seq.Release()
	if err := s.db.Close(); err != nil {
		return err
	}
	return relErr
}

func (s *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		val, err = getValue(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	return val, nil
}

func (s *Badger) Set(_ context.Context, key string, value []byte) error {
	s.writeMx.Lock()
	defer s.writeMx.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		seq, err := getSeq(txn, key)
		if errors.Is(err, store.ErrNotFound) {
			n, nerr := s.seq.Next()
			if nerr != nil {
				return nerr
			}
			seq = make([]byte, seqLen)
			binary.BigEndian.PutUint64(seq, n)
			if err = txn.Set(orderKey(seq), []byte(key)); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		data := make([]byte, 0, seqLen+len(value))
		data = append(data, seq...)
		data = append(data, value...)

		return txn.Set(valueKey(key), data)
	})
}

func (s *Badger) Delete(_ context.Context, key string) error {
	s.writeMx.Lock()
	defer s.writeMx.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		seq, err := getSeq(txn, key)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		} else if err != nil {
			return err
		}

		if err = txn.Delete(orderKey(seq)); err != nil {
			return err
		}

		return txn.Delete(valueKey(key))
	})
}

func (s *Badger) Clear(_ context.Context, prefix string) error {
	s.writeMx.Lock()
	defer s.writeMx.Unlock()

	var orderKeys, keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		return iterOrder(txn, func(oKey []byte, key string) {
			if strings.HasPrefix(key, prefix) {
				orderKeys = append(orderKeys, oKey)
				keys = append(keys, valueKey(key))
			}
		})
	})
	if err != nil {
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i := range keys {
		if err = wb.Delete(orderKeys[i]); err != nil {
			return err
		}
		if err = wb.Delete(keys[i]); err != nil {
			return err
		}
	}

	return wb.Flush()
}

func (s *Badger) Keys(_ context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		return iterOrder(txn, func(_ []byte, key string) {
			if strings.HasPrefix(key, prefix) {
				keys = append(keys, key)
			}
		})
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

func (s *Badger) MultiGet(_ context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			val, err := getValue(txn, key)
			if errors.Is(err, store.ErrNotFound) {
				continue
			} else if err != nil {
				return err
			}
			result[key] = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func getValue(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get(valueKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	if len(data) < seqLen {
		return nil, fmt.Errorf("corrupt value for key '%s'", key)
	}

	return data[seqLen:], nil
}

func getSeq(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get(valueKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	seq := make([]byte, 0, seqLen)
	err = item.Value(func(val []byte) error {
		if len(val) < seqLen {
			return fmt.Errorf("corrupt value for key '%s'", key)
		}
		seq = append(seq, val[:seqLen]...)
		return nil
	})

	return seq, err
}

func iterOrder(txn *badger.Txn, fn func(orderKey []byte, key string)) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(orderPrefix); it.ValidForPrefix(orderPrefix); it.Next() {
		item := it.Item()
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		fn(item.KeyCopy(nil), string(key))
	}

	return nil
}

func valueKey(key string) []byte {
	return append(append([]byte{}, valuePrefix...), key...)
}

func orderKey(seq []byte) []byte {
	return append(append([]byte{}, orderPrefix...), seq...)
}

type slogAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = &slogAdapter{}

func (l *slogAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *slogAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *slogAdapter) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *slogAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
