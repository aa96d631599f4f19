// Package kvstore defines the synchronous key-value primitive that the
// prefix-scoped settings backend runs on. The contract mirrors a browser
// origin storage area: flat string keys, string values, snapshot
// enumeration, and a quota that can reject writes at any time.
package kvstore

import "context"

// Store is a flat synchronous string store.
//
// Implementations must be safe for concurrent use. Enumeration via Keys
// returns a point-in-time snapshot, so callers can delete entries while
// walking the result without invalidating it.
type Store interface {
	// GetItem returns the value stored under key. The boolean is false when
	// the key is absent; absence is not an error.
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItem stores value under key, replacing any previous value.
	// Returns ErrQuotaExceeded when the write would overflow the store's
	// capacity; the previous value is kept in that case.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes the entry under key. Removing an absent key is a
	// no-op.
	RemoveItem(ctx context.Context, key string) error

	// Keys returns a snapshot of all keys currently in the store.
	Keys(ctx context.Context) ([]string, error)

	// Len returns the number of entries currently in the store.
	Len(ctx context.Context) (int, error)
}
