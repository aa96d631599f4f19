// Package webstore implements the settings backend over a synchronous
// origin key-value store. Every logical key is stored under the scope
// prefixes derived from the organization and application coordinates:
// writes always go to the most specific prefix, reads fall back through the
// less specific ones.
package webstore

import (
	"context"
	"sort"
	"strings"

	"github.com/mwantia/prefs/codec"
	"github.com/mwantia/prefs/data"
	"github.com/mwantia/prefs/keyspace"
	"github.com/mwantia/prefs/kvstore"
	"github.com/mwantia/prefs/log"
)

// WebStoreBackend is a backend.Backend over a kvstore.Store. Operations are
// synchronous and durable immediately; Sync and Flush have nothing to do.
type WebStoreBackend struct {
	store  kvstore.Store
	logger *log.Logger

	// prefixes is ordered most specific first; index 0 is the only prefix
	// written to.
	prefixes  []string
	fallbacks bool

	status   data.Status
	writable bool
}

// NewWebStoreBackend derives the scope prefixes for the given coordinates
// and binds them to the store. An empty organization leaves the backend in
// data.StatusAccessError: reads see nothing and writes are dropped.
func NewWebStoreBackend(store kvstore.Store, scope data.Scope, organization, application string, fallbacks bool, logger *log.Logger) *WebStoreBackend {
	if logger == nil {
		logger = log.Nop()
	}

	b := &WebStoreBackend{
		store:     store,
		logger:    logger,
		fallbacks: fallbacks,
	}

	prefixes, err := keyspace.BuildPrefixes(scope, organization, application)
	if err != nil {
		b.logger.Warn("Cannot derive storage prefixes: %v", err)
		b.status = data.StatusAccessError
		return b
	}

	b.prefixes = prefixes
	b.writable = true

	return b
}

func (b *WebStoreBackend) Set(ctx context.Context, key string, value any) {
	if !b.writable || key == "" {
		return
	}

	if err := b.store.SetItem(ctx, b.prefixes[0]+key, codec.Render(value)); err != nil {
		b.logger.Warn("Dropped write of %s: %v", key, err)
		b.setStatus(data.StatusAccessError)
	}
}

func (b *WebStoreBackend) Get(ctx context.Context, key string) (any, bool) {
	for _, prefix := range b.scanPrefixes() {
		stored, ok, err := b.store.GetItem(ctx, prefix+key)
		if err != nil {
			b.setStatus(data.StatusAccessError)
			continue
		}
		if ok {
			return codec.Parse(stored), true
		}
	}
	return nil, false
}

// Remove deletes key and its subtree from the writable prefix. The store is
// enumerated first and deletions run against the snapshot, so entries are
// never skipped while the key set shrinks underneath the walk.
func (b *WebStoreBackend) Remove(ctx context.Context, key string) {
	if !b.writable || key == "" {
		return
	}

	stored, err := b.store.Keys(ctx)
	if err != nil {
		b.setStatus(data.StatusAccessError)
		return
	}

	subtree := key + "/"
	var doomed []string
	for _, storedKey := range stored {
		rest, ok := keyspace.StripPrefix(b.prefixes[0], storedKey)
		if !ok || rest == "" {
			continue
		}
		if rest == key || strings.HasPrefix(rest, subtree) {
			doomed = append(doomed, storedKey)
		}
	}

	for _, storedKey := range doomed {
		if err := b.store.RemoveItem(ctx, storedKey); err != nil {
			b.setStatus(data.StatusAccessError)
		}
	}
}

func (b *WebStoreBackend) Children(ctx context.Context, prefix string, spec data.ChildSpec) []string {
	stored, err := b.store.Keys(ctx)
	if err != nil {
		b.setStatus(data.StatusAccessError)
		return nil
	}

	scan := b.scanPrefixes()
	seen := make(map[string]bool)

	for _, storedKey := range stored {
		// Every prefix view of the entry contributes; the set folds the
		// duplicates that different scope levels surface.
		for _, storePrefix := range scan {
			rest, ok := keyspace.StripPrefix(storePrefix, storedKey)
			if !ok || rest == "" {
				continue
			}
			if strings.HasPrefix(rest, prefix) {
				if child, ok := keyspace.SplitChild(rest[len(prefix):], spec); ok && child != "" {
					seen[child] = true
				}
			}
		}
	}

	children := make([]string, 0, len(seen))
	for child := range seen {
		children = append(children, child)
	}
	sort.Strings(children)

	return children
}

// Clear removes every entry under the writable prefix. Entries visible only
// through fallback prefixes belong to other coordinates and stay.
func (b *WebStoreBackend) Clear(ctx context.Context) {
	if !b.writable {
		return
	}

	stored, err := b.store.Keys(ctx)
	if err != nil {
		b.setStatus(data.StatusAccessError)
		return
	}

	var doomed []string
	for _, storedKey := range stored {
		if rest, ok := keyspace.StripPrefix(b.prefixes[0], storedKey); ok && rest != "" {
			doomed = append(doomed, storedKey)
		}
	}

	for _, storedKey := range doomed {
		if err := b.store.RemoveItem(ctx, storedKey); err != nil {
			b.setStatus(data.StatusAccessError)
		}
	}
}

func (b *WebStoreBackend) Sync(ctx context.Context)  {}
func (b *WebStoreBackend) Flush(ctx context.Context) {}

func (b *WebStoreBackend) IsWritable() bool {
	return b.writable
}

func (b *WebStoreBackend) FileName() string {
	return ""
}

func (b *WebStoreBackend) Status() data.Status {
	return b.status
}

func (b *WebStoreBackend) Close() error {
	return nil
}

func (b *WebStoreBackend) setStatus(status data.Status) {
	// Only the first error sticks.
	if b.status == data.StatusNoError {
		b.status = status
	}
}

// scanPrefixes returns the prefixes consulted by reads: all of them in
// fallback order, or just the writable one when fallbacks are disabled.
func (b *WebStoreBackend) scanPrefixes() []string {
	if b.fallbacks || len(b.prefixes) == 0 {
		return b.prefixes
	}
	return b.prefixes[:1]
}
