// Package memory provides an in-memory objectdb.Database for tests and for
// sandboxes without durable storage. Faults can be injected per operation to
// exercise the failure paths of the layers above.
package memory

import (
	"context"
	"sync"

	"github.com/mwantia/prefs/objectdb"
)

// Faults holds one optional error per operation. A non-nil entry makes the
// corresponding operation fail with it.
type Faults struct {
	Exists error
	Load   error
	Store  error
	Delete error
}

// MemoryDatabase is a thread-safe in-memory objectdb.Database.
type MemoryDatabase struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	faults Faults
	closed bool
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		blobs: make(map[string][]byte),
	}
}

// SetFaults replaces the injected faults. Passing the zero value clears
// them.
func (m *MemoryDatabase) SetFaults(faults Faults) {
	m.mu.Lock()
	m.faults = faults
	m.mu.Unlock()
}

func (m *MemoryDatabase) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, objectdb.ErrClosed
	}
	if m.faults.Exists != nil {
		return false, m.faults.Exists
	}

	_, ok := m.blobs[path]
	return ok, nil
}

func (m *MemoryDatabase) Load(ctx context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, objectdb.ErrClosed
	}
	if m.faults.Load != nil {
		return nil, m.faults.Load
	}

	blob, ok := m.blobs[path]
	if !ok {
		return nil, objectdb.ErrNotExist
	}

	copied := make([]byte, len(blob))
	copy(copied, blob)
	return copied, nil
}

func (m *MemoryDatabase) Store(ctx context.Context, path string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return objectdb.ErrClosed
	}
	if m.faults.Store != nil {
		return m.faults.Store
	}

	copied := make([]byte, len(blob))
	copy(copied, blob)
	m.blobs[path] = copied

	return nil
}

func (m *MemoryDatabase) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return objectdb.ErrClosed
	}
	if m.faults.Delete != nil {
		return m.faults.Delete
	}

	delete(m.blobs, path)
	return nil
}

func (m *MemoryDatabase) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.blobs = make(map[string][]byte)
	return nil
}

// Len returns the number of stored blobs.
func (m *MemoryDatabase) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.blobs)
}
