// Package objectdb defines the transactional blob store behind the
// file-backed settings path. The contract mirrors an origin object database:
// whole blobs keyed by path, atomic replacement on store, and asynchronous
// access from the application's point of view.
//
// Implementations are blocking. The AsyncClient adapts any Database to the
// completion-callback model the settings layer runs on.
package objectdb

import "context"

// Database is a blocking whole-blob store keyed by path.
//
// Implementations must be safe for concurrent use; the AsyncClient issues
// operations from short-lived goroutines.
type Database interface {
	// Exists reports whether a blob is stored under path.
	Exists(ctx context.Context, path string) (bool, error)

	// Load returns the blob stored under path.
	// Returns ErrNotExist if nothing is stored there.
	Load(ctx context.Context, path string) ([]byte, error)

	// Store atomically replaces the blob under path. Later stores win;
	// there is no partial write visible to readers.
	Store(ctx context.Context, path string, blob []byte) error

	// Delete removes the blob under path. Deleting an absent path is a
	// no-op.
	Delete(ctx context.Context, path string) error

	// Close releases the underlying resources. Operations after Close
	// return ErrClosed.
	Close(ctx context.Context) error
}
