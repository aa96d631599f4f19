// Package memory provides the in-memory kvstore.Store used by tests and by
// sandboxes without a durable origin store. It enforces the same kind of
// byte quota a browser storage area does, so quota handling can be
// exercised without a real host.
package memory

import (
	"context"
	"sync"

	"github.com/mwantia/prefs/kvstore"
	"github.com/tidwall/btree"
)

// DefaultQuota is the capacity used when none is configured, matching the
// conventional browser allowance for an origin storage area.
const DefaultQuota = 5 * 1024 * 1024

// Config contains configuration options for the in-memory store.
type Config struct {
	// Quota is the maximum total size in bytes of all keys and values.
	// Zero selects DefaultQuota; a negative value disables the quota.
	Quota int64
}

// MemoryStore is a thread-safe in-memory kvstore.Store. Keys are held in an
// ordered index, so enumeration is deterministic.
type MemoryStore struct {
	mu    sync.RWMutex
	items *btree.Map[string, string]
	usage int64
	quota int64
}

// NewMemoryStore creates an empty store with the configured quota.
func NewMemoryStore(config *Config) *MemoryStore {
	if config == nil {
		config = &Config{}
	}

	quota := config.Quota
	if quota == 0 {
		quota = DefaultQuota
	}

	return &MemoryStore{
		items: btree.NewMap[string, string](0),
		quota: quota,
	}
}

func (m *MemoryStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items.Get(key)
	return value, ok, nil
}

func (m *MemoryStore) SetItem(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	usage := m.usage + int64(len(key)) + int64(len(value))
	if previous, ok := m.items.Get(key); ok {
		usage -= int64(len(key)) + int64(len(previous))
	}

	if m.quota > 0 && usage > m.quota {
		return kvstore.ErrQuotaExceeded
	}

	m.items.Set(key, value)
	m.usage = usage

	return nil
}

func (m *MemoryStore) RemoveItem(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if previous, ok := m.items.Get(key); ok {
		m.items.Delete(key)
		m.usage -= int64(len(key)) + int64(len(previous))
	}

	return nil
}

func (m *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, m.items.Len())
	m.items.Scan(func(key, value string) bool {
		keys = append(keys, key)
		return true
	})

	return keys, nil
}

func (m *MemoryStore) Len(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.items.Len(), nil
}

// Usage returns the current total size in bytes of all keys and values.
func (m *MemoryStore) Usage() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.usage
}
