// Package prefs provides persistent application settings for sandboxed
// hosts. Settings are identified by (scope, organization, application) and
// persist through one of three backends: a synchronous key/value primitive
// (the local-storage shape), a transactional object database hydrated
// asynchronously (the indexed-db shape), or a conventional INI file on the
// sandbox filesystem.
//
// A Sandbox bundles the pieces every backend shares: the virtual filesystem,
// the completion event loop, the instance liveness registry and the logger.
// Open resolves a requested format to a backend; OpenSettings wraps the
// result in the Settings front-end with group navigation and typed getters.
//
// The sandbox models a single-threaded cooperative host. Async completions
// queue on the sandbox loop and only run when the owner pumps it; nothing
// here starts background processing on its own.
package prefs

import (
	"context"

	"github.com/mwantia/prefs/backend/webidb"
	"github.com/mwantia/prefs/eventloop"
	"github.com/mwantia/prefs/kvstore"
	"github.com/mwantia/prefs/log"
	"github.com/mwantia/prefs/memfs"
	"github.com/mwantia/prefs/objectdb"
)

// Sandbox owns the shared runtime of one settings host: the virtual
// filesystem the file-based engines write to, the event loop completions
// arrive on, the liveness registry for transactional backends and the
// bindings to the storage primitives.
type Sandbox struct {
	logger   *log.Logger
	loop     *eventloop.Loop
	fs       *memfs.FS
	registry *webidb.Registry

	store  kvstore.Store
	db     objectdb.Database
	client *objectdb.AsyncClient

	persistent bool
	warned     bool
}

func NewSandbox(opts ...SandboxOption) (*Sandbox, error) {
	options := newDefaultSandboxOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("prefs", options.LogLevel, options.LogFile, options.NoTerminalLog)
	}

	fs := options.FileSystem
	if fs == nil {
		fs = memfs.New()
	}

	s := &Sandbox{
		logger:     logger,
		loop:       eventloop.New(),
		fs:         fs,
		registry:   webidb.NewRegistry(),
		store:      options.KeyValueStore,
		db:         options.ObjectDatabase,
		persistent: options.PersistentStorage,
	}
	if s.db != nil {
		s.client = objectdb.NewAsyncClient(s.db, s.loop)
	}

	return s, nil
}

// Pump runs every completion currently queued on the sandbox loop and
// returns how many ran. Callers drive all async progress through this (or
// the ProcessEvents variants); completions never run on their own.
func (s *Sandbox) Pump() int {
	return s.loop.Tick()
}

// ProcessEvents blocks until at least one completion is queued, runs the
// queue and returns. It returns the context error on cancellation.
func (s *Sandbox) ProcessEvents(ctx context.Context) error {
	if err := s.loop.Wait(ctx); err != nil {
		return err
	}
	s.loop.Tick()
	return nil
}

// ProcessEventsUntil pumps the loop until done reports true, waiting for new
// completions in between. It returns the context error on cancellation.
func (s *Sandbox) ProcessEventsUntil(ctx context.Context, done func() bool) error {
	return s.loop.Run(ctx, done)
}

// FileSystem returns the sandbox virtual filesystem.
func (s *Sandbox) FileSystem() *memfs.FS {
	return s.fs
}

// Loop returns the completion event loop.
func (s *Sandbox) Loop() *eventloop.Loop {
	return s.loop
}

// Logger returns the sandbox logger.
func (s *Sandbox) Logger() *log.Logger {
	return s.logger
}

// KeyValueStore returns the bound synchronous primitive, or nil.
func (s *Sandbox) KeyValueStore() kvstore.Store {
	return s.store
}

// ObjectDatabase returns the bound transactional primitive, or nil.
func (s *Sandbox) ObjectDatabase() objectdb.Database {
	return s.db
}

// Close releases the storage bindings. Settings instances should be closed
// first; completions of operations still in flight are dropped by the
// liveness registry once their owners are gone.
func (s *Sandbox) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close(ctx)
}
