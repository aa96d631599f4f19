// Package webidb implements the transactional settings backend. The actual
// key/value semantics live in an embedded file-backed engine over the sandbox
// filesystem; this package owns hydrating that file from the object database
// and persisting it back as a single blob.
//
// Hydration is asynchronous. Construction issues an existence check for the
// instance's settings path; if a blob is stored it is loaded and written
// verbatim into the sandbox filesystem before the engine parses it. Until the
// chain finishes the backend reports an access error and reads come back
// absent, so a cold backend is indistinguishable from an empty one. Writes
// issued before readiness stay buffered in the engine and become durable on
// the first sync after the gate opens.
//
// Completions are routed through a liveness registry. Closing an instance
// deregisters it, and completions that find no registered owner are dropped,
// so operations still in flight never touch a closed backend.
package webidb

import (
	"context"

	"github.com/mwantia/prefs/backend/inifile"
	"github.com/mwantia/prefs/data"
	"github.com/mwantia/prefs/keyspace"
	"github.com/mwantia/prefs/liveness"
	"github.com/mwantia/prefs/log"
	"github.com/mwantia/prefs/memfs"
	"github.com/mwantia/prefs/objectdb"
)

// Registry tracks the live backend instances of one sandbox. Every async
// completion resolves its token against it before touching the instance.
type Registry = liveness.Registry[*WebIDBBackend]

// NewRegistry returns an empty instance registry.
func NewRegistry() *Registry {
	return liveness.NewRegistry[*WebIDBBackend]()
}

// WebIDBBackend persists settings as one blob per settings path in a
// transactional object database. It belongs to the goroutine pumping the
// sandbox event loop and is not safe for concurrent use.
type WebIDBBackend struct {
	client   *objectdb.AsyncClient
	registry *Registry
	token    liveness.Token
	fs       *memfs.FS
	engine   *inifile.Engine
	logger   *log.Logger
	path     string

	state  ReadyState
	status data.Status
	closed bool
}

// NewWebIDBBackend builds a backend instance, registers it and starts the
// hydration chain. The instance is usable immediately; reads answer absent
// until the chain opens the gate, and the completions only run once the
// caller pumps the client's event loop.
func NewWebIDBBackend(ctx context.Context, client *objectdb.AsyncClient, registry *Registry, fs *memfs.FS, scope data.Scope, organization, application string, logger *log.Logger) *WebIDBBackend {
	if logger == nil {
		logger = log.Nop()
	}
	b := &WebIDBBackend{
		client:   client,
		registry: registry,
		fs:       fs,
		logger:   logger,
		// Access error until the stored blob has answered.
		status: data.StatusAccessError,
	}

	if organization == "" {
		// An empty organization cannot be told apart from every other
		// application sharing the database; persistence stays disabled.
		b.state = StateFailed
		return b
	}

	b.path = keyspace.ConfPath(scope, organization, application)
	b.engine = inifile.NewEngine(fs, b.path, logger)
	b.token = registry.Register(b)
	b.beginCheck(ctx)
	return b
}

func (b *WebIDBBackend) beginCheck(ctx context.Context) {
	b.state.advance(StateChecking)
	registry, token := b.registry, b.token
	b.client.Exists(ctx, b.path, func(exists bool, err error) {
		if inst, ok := registry.Lookup(token); ok {
			inst.onChecked(ctx, exists, err)
		}
	})
}

func (b *WebIDBBackend) onChecked(ctx context.Context, exists bool, err error) {
	if err != nil {
		b.fail("existence check", err)
		return
	}
	if !exists {
		// Nothing stored yet; an empty store is valid.
		b.setReady(ctx)
		return
	}

	b.state.advance(StateLoading)
	registry, token := b.registry, b.token
	b.client.Load(ctx, b.path, func(blob []byte, err error) {
		if inst, ok := registry.Lookup(token); ok {
			inst.onLoaded(ctx, blob, err)
		}
	})
}

func (b *WebIDBBackend) onLoaded(ctx context.Context, blob []byte, err error) {
	if err != nil {
		b.fail("load", err)
		return
	}
	if err := b.fs.WriteFile(b.path, blob); err != nil {
		b.fail("hydration write", err)
		return
	}
	b.setReady(ctx)
}

// setReady opens the gate, clears the construction-time access error and has
// the engine parse whatever the hydration chain put in place. Writes buffered
// before this point stay pending in the engine and shadow the parsed file.
func (b *WebIDBBackend) setReady(ctx context.Context) {
	if !b.state.advance(StateReady) {
		return
	}
	b.status = data.StatusNoError
	b.engine.InitAccess(ctx)
}

// fail parks the instance in its terminal state. There are no retries; the
// only recovery is constructing a new instance.
func (b *WebIDBBackend) fail(op string, err error) {
	b.state.advance(StateFailed)
	b.status = data.StatusAccessError
	b.logger.Warn("Settings %s failed for %s: %v", op, b.path, err)
}

// onPersisted finishes an async store or delete. Success clears a stale
// status; failure parks the instance.
func (b *WebIDBBackend) onPersisted(op string, err error) {
	if err != nil {
		b.fail(op, err)
		return
	}
	if b.state != StateFailed {
		b.status = data.StatusNoError
	}
}

// Set records the value in the embedded engine. Writes are accepted before
// readiness and become durable on the first sync after the gate opens.
func (b *WebIDBBackend) Set(ctx context.Context, key string, value any) {
	if b.engine == nil || b.closed {
		return
	}
	b.engine.Set(ctx, key, value)
}

// Get consults the engine only once the gate is open. An instance that has
// not finished hydrating answers absent rather than failing.
func (b *WebIDBBackend) Get(ctx context.Context, key string) (any, bool) {
	if b.state != StateReady || b.closed {
		return nil, false
	}
	return b.engine.Get(ctx, key)
}

// Remove deletes the key and its descendants from the engine.
func (b *WebIDBBackend) Remove(ctx context.Context, key string) {
	if b.engine == nil || b.closed {
		return
	}
	b.engine.Remove(ctx, key)
}

// Children enumerates the engine regardless of readiness. Before hydration
// the engine only holds what this instance wrote, so an un-hydrated store
// legitimately yields little or nothing.
func (b *WebIDBBackend) Children(ctx context.Context, prefix string, spec data.ChildSpec) []string {
	if b.engine == nil || b.closed {
		return nil
	}
	return b.engine.Children(ctx, prefix, spec)
}

// Clear empties the engine immediately and issues a delete of the stored
// blob. The local clear does not wait for the delete's outcome.
func (b *WebIDBBackend) Clear(ctx context.Context) {
	if b.engine == nil || b.closed {
		return
	}
	b.engine.Clear(ctx)

	registry, token := b.registry, b.token
	b.client.Delete(ctx, b.path, func(err error) {
		if inst, ok := registry.Lookup(token); ok {
			inst.onPersisted("delete", err)
		}
	})
}

// Sync flushes the engine to its file and stores the resulting bytes as one
// blob under the instance's path. Until the gate opens this is a no-op:
// pending writes stay buffered so hydration can merge the stored blob under
// them, and a later sync makes both durable.
func (b *WebIDBBackend) Sync(ctx context.Context) {
	if b.state != StateReady || b.closed {
		return
	}
	b.engine.Sync(ctx)

	blob, err := b.fs.ReadFile(b.path)
	if err != nil {
		b.logger.Warn("Settings file %s unreadable after sync: %v", b.path, err)
		return
	}

	registry, token := b.registry, b.token
	b.client.Store(ctx, b.path, blob, func(err error) {
		if inst, ok := registry.Lookup(token); ok {
			inst.onPersisted("store", err)
		}
	})
}

// Flush is defined as Sync; the blob store has no weaker durability point.
func (b *WebIDBBackend) Flush(ctx context.Context) {
	b.Sync(ctx)
}

// IsWritable reports whether writes can eventually become durable: the gate
// must be open and the engine must accept writes.
func (b *WebIDBBackend) IsWritable() bool {
	return b.state == StateReady && !b.closed && b.engine.IsWritable()
}

// FileName returns the settings path inside the sandbox filesystem, which is
// also the blob key in the object database.
func (b *WebIDBBackend) FileName() string {
	return b.path
}

// Status reports instance health. The hydration status wins; otherwise the
// embedded engine's parse state shows through.
func (b *WebIDBBackend) Status() data.Status {
	if b.status != data.StatusNoError {
		return b.status
	}
	return b.engine.Status()
}

// State exposes the readiness gate, mainly for diagnostics.
func (b *WebIDBBackend) State() ReadyState {
	return b.state
}

// Close persists unsaved changes when the gate is open and removes the
// instance from the registry. Completions still in flight find no owner
// afterwards and are dropped.
func (b *WebIDBBackend) Close() error {
	if b.closed {
		return nil
	}
	if b.state == StateReady && b.engine.HasPendingChanges() {
		b.Sync(context.Background())
	}
	b.registry.Deregister(b.token)
	b.closed = true
	return nil
}
