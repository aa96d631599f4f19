// Package inifile implements the conventional file-backed settings engine.
// It keeps a parsed view of one INI document in the sandbox filesystem and
// buffers changes in memory until Sync writes them back.
//
// The engine serves two roles: it is the backend behind the plain INI
// format, and the transactional web backend embeds it to do the actual key
// handling once the database blob has been materialized as a file.
package inifile

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/mwantia/prefs/codec"
	"github.com/mwantia/prefs/data"
	"github.com/mwantia/prefs/keyspace"
	"github.com/mwantia/prefs/log"
	"github.com/mwantia/prefs/memfs"
)

// Engine is a backend.Backend over one configuration file.
//
// Pending changes live in the added and removed overlays until Sync merges
// them over the file's current content and writes the result back. A write
// issued before the file has ever been read is therefore accepted
// immediately and becomes durable on the next Sync.
type Engine struct {
	fs     *memfs.FS
	path   string
	logger *log.Logger

	// original is the durable view from the last parse of the file.
	original map[string]string
	// added holds pending writes as rendered strings.
	added map[string]string
	// removed holds pending removals of keys present in original.
	removed map[string]bool

	status   data.Status
	readOnly bool
}

// NewEngine creates an engine over the file at path. The file is not read
// until InitAccess or the first Sync.
func NewEngine(fs *memfs.FS, path string, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Nop()
	}

	return &Engine{
		fs:     fs,
		path:   path,
		logger: logger,

		original: make(map[string]string),
		added:    make(map[string]string),
		removed:  make(map[string]bool),
	}
}

// InitAccess reads and parses the file, replacing the durable view. Pending
// writes and removals are kept and stay on top of the fresh view. A missing
// file is an empty view; an unreadable file records data.StatusAccessError
// and a malformed one data.StatusFormatError.
func (e *Engine) InitAccess(ctx context.Context) {
	blob, err := e.fs.ReadFile(e.path)
	if err != nil {
		if errors.Is(err, memfs.ErrNotExist) {
			e.original = make(map[string]string)
			return
		}

		e.logger.Warn("Failed to read %s: %v", e.path, err)
		e.setStatus(data.StatusAccessError)
		return
	}

	view, err := parse(blob)
	if err != nil {
		e.logger.Warn("Failed to parse %s: %v", e.path, err)
		e.setStatus(data.StatusFormatError)
		e.original = make(map[string]string)
		return
	}

	e.original = view
}

func (e *Engine) Set(ctx context.Context, key string, value any) {
	if key == "" {
		return
	}

	e.added[key] = codec.Render(value)
	delete(e.removed, key)
}

func (e *Engine) Get(ctx context.Context, key string) (any, bool) {
	if stored, ok := e.added[key]; ok {
		return codec.Parse(stored), true
	}
	if e.removed[key] {
		return nil, false
	}
	if stored, ok := e.original[key]; ok {
		return codec.Parse(stored), true
	}
	return nil, false
}

// Remove drops key and its whole subtree from the pending view.
func (e *Engine) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}

	prefix := key + "/"
	for k := range e.added {
		if k == key || strings.HasPrefix(k, prefix) {
			delete(e.added, k)
		}
	}
	for k := range e.original {
		if k == key || strings.HasPrefix(k, prefix) {
			e.removed[k] = true
		}
	}
}

func (e *Engine) Children(ctx context.Context, prefix string, spec data.ChildSpec) []string {
	seen := make(map[string]bool)

	collect := func(key string) {
		if !strings.HasPrefix(key, prefix) {
			return
		}
		if child, ok := keyspace.SplitChild(key[len(prefix):], spec); ok && child != "" {
			seen[child] = true
		}
	}

	for key := range e.original {
		if !e.removed[key] {
			collect(key)
		}
	}
	for key := range e.added {
		collect(key)
	}

	children := make([]string, 0, len(seen))
	for child := range seen {
		children = append(children, child)
	}
	sort.Strings(children)

	return children
}

// Clear drops every key, pending and durable.
func (e *Engine) Clear(ctx context.Context) {
	e.added = make(map[string]string)
	for key := range e.original {
		e.removed[key] = true
	}
}

// Sync re-reads the file, lays the pending changes over it, and writes the
// merged document back. On success the pending overlays are folded into the
// durable view; on failure they are kept for the next attempt. A file that
// stopped parsing is left untouched rather than overwritten.
func (e *Engine) Sync(ctx context.Context) {
	before := e.status
	e.InitAccess(ctx)
	if e.status == data.StatusFormatError && before != data.StatusFormatError {
		return
	}

	e.Flush(ctx)
}

// Flush writes the merged document without re-reading the file first.
func (e *Engine) Flush(ctx context.Context) {
	if e.readOnly {
		if e.HasPendingChanges() {
			e.setStatus(data.StatusAccessError)
		}
		return
	}

	merged := e.view()
	blob, err := serialize(merged)
	if err != nil {
		e.logger.Warn("Failed to serialize %s: %v", e.path, err)
		e.setStatus(data.StatusFormatError)
		return
	}

	if err := e.fs.WriteFile(e.path, blob); err != nil {
		e.logger.Warn("Failed to write %s: %v", e.path, err)
		e.setStatus(data.StatusAccessError)
		return
	}

	e.original = merged
	e.added = make(map[string]string)
	e.removed = make(map[string]bool)
}

// SetReadOnly puts the engine in read-only mode. Reads and in-memory writes
// keep working; Flush refuses to touch the file and reports an access error
// if changes are pending.
func (e *Engine) SetReadOnly() {
	e.readOnly = true
}

func (e *Engine) IsWritable() bool {
	return !e.readOnly
}

func (e *Engine) FileName() string {
	return e.path
}

func (e *Engine) Status() data.Status {
	return e.status
}

// Close writes any unsaved changes and releases the engine.
func (e *Engine) Close() error {
	if e.HasPendingChanges() {
		e.Sync(context.Background())
	}
	return nil
}

// HasPendingChanges reports whether Sync would change the file.
func (e *Engine) HasPendingChanges() bool {
	return len(e.added) > 0 || len(e.removed) > 0
}

func (e *Engine) setStatus(status data.Status) {
	// Only the first error sticks.
	if e.status == data.StatusNoError {
		e.status = status
	}
}

// view lays the pending overlays over the durable view.
func (e *Engine) view() map[string]string {
	view := make(map[string]string, len(e.original)+len(e.added))
	for key, value := range e.original {
		if !e.removed[key] {
			view[key] = value
		}
	}
	for key, value := range e.added {
		view[key] = value
	}
	return view
}
