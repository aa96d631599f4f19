package prefs

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/mwantia/prefs/backend/inifile"
	"github.com/mwantia/prefs/backend/webidb"
	"github.com/mwantia/prefs/backend/webstore"
	"github.com/mwantia/prefs/data"
	"github.com/mwantia/prefs/keyspace"
	"github.com/mwantia/prefs/log"
)

func TestOpenFormatSelection(t *testing.T) {
	ctx := t.Context()
	sb := newTestSandbox(t)

	native, err := sb.Open(ctx, data.FormatNative, data.ScopeUser, "Acme", "Tool")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := native.(*webstore.WebStoreBackend); !ok {
		t.Errorf("Expected the web store backend for the native format, got %T", native)
	}

	idb, err := sb.Open(ctx, data.FormatWebIDB, data.ScopeUser, "Acme", "Tool")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := idb.(*webidb.WebIDBBackend); !ok {
		t.Errorf("Expected the web IDB backend, got %T", idb)
	}

	ini, err := sb.Open(ctx, data.FormatIni, data.ScopeUser, "Acme", "Tool")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	engine, ok := ini.(*inifile.Engine)
	if !ok {
		t.Fatalf("Expected the file engine for the ini format, got %T", ini)
	}
	if want := keyspace.ConfPath(data.ScopeUser, "Acme", "Tool"); engine.FileName() != want {
		t.Errorf("Expected file %q, got %q", want, engine.FileName())
	}

	custom, err := sb.Open(ctx, data.FormatCustom1, data.ScopeUser, "Acme", "Tool")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := custom.(*inifile.Engine); !ok {
		t.Errorf("Expected the file engine for a custom format, got %T", custom)
	}

	if _, err := sb.Open(ctx, data.FormatInvalid, data.ScopeUser, "Acme", "Tool"); !errors.Is(err, data.ErrInvalidFormat) {
		t.Errorf("Expected ErrInvalidFormat, got %v", err)
	}
}

func TestOpenWithoutPersistentStorageFallsBack(t *testing.T) {
	ctx := t.Context()
	var buf bytes.Buffer
	logger := log.New("prefs", log.Warn, &buf)
	sb := newTestSandbox(t, WithLogger(logger), WithPersistentStorage(false))

	b, err := sb.Open(ctx, data.FormatNative, data.ScopeUser, "Acme", "Tool")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	engine, ok := b.(*inifile.Engine)
	if !ok {
		t.Fatalf("Expected the fallback file engine, got %T", b)
	}
	if want := keyspace.TempConfPath("Acme", "Tool"); engine.FileName() != want {
		t.Errorf("Expected temporary file %q, got %q", want, engine.FileName())
	}

	// The fallback engine still works end to end.
	engine.Set(ctx, "x", 1)
	if value, ok := engine.Get(ctx, "x"); !ok || value != "1" {
		t.Errorf("Expected '1' from the fallback engine, got %v (present=%v)", value, ok)
	}

	// The warning is emitted once, not per open.
	if _, err := sb.Open(ctx, data.FormatWebIDB, data.ScopeUser, "Acme", "Tool"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := strings.Count(buf.String(), "falling back"); got != 1 {
		t.Errorf("Expected exactly one fallback warning, got %d:\n%s", got, buf.String())
	}
}

func TestOpenMissingBindings(t *testing.T) {
	ctx := t.Context()
	sb, err := NewSandbox(WithLogger(log.Nop()))
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}

	if _, err := sb.Open(ctx, data.FormatWebStore, data.ScopeUser, "Acme", "Tool"); !errors.Is(err, data.ErrNoKeyValueStore) {
		t.Errorf("Expected ErrNoKeyValueStore, got %v", err)
	}
	if _, err := sb.Open(ctx, data.FormatWebIDB, data.ScopeUser, "Acme", "Tool"); !errors.Is(err, data.ErrNoObjectDatabase) {
		t.Errorf("Expected ErrNoObjectDatabase, got %v", err)
	}
	if _, err := sb.Open(ctx, data.FormatIni, data.ScopeUser, "", "Tool"); !errors.Is(err, data.ErrEmptyOrganization) {
		t.Errorf("Expected ErrEmptyOrganization, got %v", err)
	}
}

func TestOpenReadOnlyEngine(t *testing.T) {
	ctx := t.Context()
	sb := newTestSandbox(t)

	b, err := sb.Open(ctx, data.FormatIni, data.ScopeUser, "Acme", "Tool", WithReadOnly())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if b.IsWritable() {
		t.Error("Expected a read-only engine")
	}

	b.Set(ctx, "x", 1)
	b.Sync(ctx)
	if b.Status() != data.StatusAccessError {
		t.Errorf("Expected an access error for unwritable pending changes, got %s", b.Status())
	}
}

func TestEmptyOrganizationThroughWebBackends(t *testing.T) {
	ctx := t.Context()
	sb := newTestSandbox(t)

	// The web backends absorb the empty organization into their status
	// instead of failing construction.
	b, err := sb.Open(ctx, data.FormatNative, data.ScopeUser, "", "Tool")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if b.Status() != data.StatusAccessError {
		t.Errorf("Expected an access error, got %s", b.Status())
	}
	if b.IsWritable() {
		t.Error("Expected unwritable")
	}

	b.Set(ctx, "x", 1)
	count, err := sb.KeyValueStore().Len(ctx)
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected no physical writes, got %d entries", count)
	}
}
