// Package backend defines the storage contract every settings backend
// implements. The front-end talks only to this interface; which storage
// actually holds the data is decided once, when the backend is created.
//
// Backends absorb storage failures instead of returning them: a failed
// operation degrades to "value absent" or "write dropped" and records a
// status on the instance. Callers that care inspect Status after the fact.
// The storage primitives underneath (kvstore, objectdb) do return errors;
// the absorption happens here.
package backend

import (
	"context"

	"github.com/mwantia/prefs/data"
)

// Backend stores rendered setting values under slash-separated logical keys.
//
// Implementations are not required to be safe for concurrent use. A backend
// belongs to the goroutine that pumps its sandbox's event loop.
type Backend interface {
	// Set stores a value under key. Whether the value is durable
	// immediately or only after Sync depends on the backend.
	Set(ctx context.Context, key string, value any)

	// Get returns the value stored under key. The boolean is false when
	// the key is absent, when the backend is not ready yet, and when the
	// backend has failed; absence is never an error.
	Get(ctx context.Context, key string) (any, bool)

	// Remove deletes key and every key below it.
	Remove(ctx context.Context, key string)

	// Children returns the deduplicated child entries under prefix,
	// filtered by the given spec. Pass an empty prefix for the root.
	Children(ctx context.Context, prefix string, spec data.ChildSpec) []string

	// Clear removes every key this backend wrote or could write. Entries
	// visible only through read fallback are left alone.
	Clear(ctx context.Context)

	// Sync makes pending writes durable and picks up external changes
	// where the backend supports that.
	Sync(ctx context.Context)

	// Flush makes pending writes durable without the re-read half of
	// Sync.
	Flush(ctx context.Context)

	// IsWritable reports whether writes can currently be accepted.
	IsWritable() bool

	// FileName returns the logical file path behind this backend, or an
	// empty string if it has none.
	FileName() string

	// Status returns the first error category absorbed by this instance,
	// or data.StatusNoError.
	Status() data.Status

	// Close releases the backend. Late completions belonging to it are
	// dropped. Close never reports storage failures; they are absorbed
	// like every other.
	Close() error
}
