package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.hackfix.me/forage/store"
)

// Memory is a thread-safe in-memory Store. Keys are kept in insertion order.
type Memory struct {
	mu    sync.RWMutex
	data  map[string][]byte
	order []string
}

var _ store.Store = &Memory{}

// New creates an empty in-memory store.
func New() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}

	return clone(val), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; !ok {
		m.order = append(m.order, key)
	}
	m.data[key] = clone(value)

	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[key]; !ok {
		return nil
	}
	delete(m.data, key)
	if idx := slices.Index(m.order, key); idx >= 0 {
		m.order = slices.Delete(m.order, idx, idx+1)
	}

	return nil
}

func (m *Memory) Clear(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.order[:0]
	for _, key := range m.order {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
			continue
		}
		kept = append(kept, key)
	}
	m.order = kept

	return nil
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := []string{}
	for _, key := range m.order {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (m *Memory) MultiGet(_ context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if val, ok := m.data[key]; ok {
			result[key] = clone(val)
		}
	}

	return result, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

func clone(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
