package webidb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mwantia/prefs/data"
	"github.com/mwantia/prefs/eventloop"
	"github.com/mwantia/prefs/keyspace"
	"github.com/mwantia/prefs/memfs"
	"github.com/mwantia/prefs/objectdb"
	"github.com/mwantia/prefs/objectdb/memory"
)

type fixture struct {
	loop     *eventloop.Loop
	db       *memory.MemoryDatabase
	client   *objectdb.AsyncClient
	registry *Registry
	fs       *memfs.FS
}

func newFixture() *fixture {
	loop := eventloop.New()
	db := memory.NewMemoryDatabase()
	return &fixture{
		loop:     loop,
		db:       db,
		client:   objectdb.NewAsyncClient(db, loop),
		registry: NewRegistry(),
		fs:       memfs.New(),
	}
}

func (f *fixture) open(ctx context.Context, organization, application string) *WebIDBBackend {
	return NewWebIDBBackend(ctx, f.client, f.registry, f.fs, data.ScopeUser, organization, application, nil)
}

func pump(t *testing.T, loop *eventloop.Loop, done func() bool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	if err := loop.Run(ctx, done); err != nil {
		t.Fatalf("Pumping the loop failed: %v", err)
	}
}

func awaitReady(t *testing.T, f *fixture, b *WebIDBBackend) {
	t.Helper()

	pump(t, f.loop, func() bool {
		return b.State() == StateReady || b.State() == StateFailed
	})
	if b.State() != StateReady {
		t.Fatalf("Expected ready state, got %s", b.State())
	}
}

func TestGateNeverRegresses(t *testing.T) {
	var s ReadyState

	if !s.advance(StateChecking) {
		t.Error("Expected unready to advance to checking")
	}
	if s.advance(StateUnready) {
		t.Error("Expected backward transition to be rejected")
	}
	if !s.advance(StateReady) {
		t.Error("Expected checking to advance straight to ready")
	}
	if s.advance(StateLoading) {
		t.Error("Expected ready to reject a regression to loading")
	}
	if !s.advance(StateFailed) {
		t.Error("Expected ready to advance to failed")
	}
	if s.advance(StateReady) {
		t.Error("Expected failed to be terminal")
	}
	if s != StateFailed {
		t.Errorf("Expected terminal state failed, got %s", s)
	}
}

func TestOpensReadyOnEmptyDatabase(t *testing.T) {
	ctx := t.Context()
	f := newFixture()

	b := f.open(ctx, "Acme", "Tool")
	if b.State() == StateReady {
		t.Fatal("Expected hydration to be pending before the loop is pumped")
	}

	awaitReady(t, f, b)

	if b.Status() != data.StatusNoError {
		t.Errorf("Expected no error after readiness, got %s", b.Status())
	}
	if !b.IsWritable() {
		t.Error("Expected a ready instance to be writable")
	}
	if _, ok := b.Get(ctx, "language"); ok {
		t.Error("Expected an empty store after hydrating nothing")
	}
}

func TestReadsAbsentUntilHydrated(t *testing.T) {
	ctx := t.Context()
	f := newFixture()
	path := keyspace.ConfPath(data.ScopeUser, "Acme", "Tool")

	if err := f.db.Store(ctx, path, []byte("[General]\nlanguage=de\n")); err != nil {
		t.Fatalf("Seeding the database failed: %v", err)
	}

	b := f.open(ctx, "Acme", "Tool")
	if _, ok := b.Get(ctx, "language"); ok {
		t.Fatal("Expected absent while hydration is pending")
	}
	if b.IsWritable() {
		t.Fatal("Expected unwritable while hydration is pending")
	}
	if b.Status() != data.StatusAccessError {
		t.Fatalf("Expected access error before readiness, got %s", b.Status())
	}

	awaitReady(t, f, b)

	value, ok := b.Get(ctx, "language")
	if !ok {
		t.Fatal("Expected the hydrated value to be present")
	}
	if value != "de" {
		t.Errorf("Expected 'de', got %v", value)
	}
}

func TestWritesBeforeReadinessSurviveHydration(t *testing.T) {
	ctx := t.Context()
	f := newFixture()
	path := keyspace.ConfPath(data.ScopeUser, "Acme", "Tool")

	if err := f.db.Store(ctx, path, []byte("[General]\nlanguage=de\n")); err != nil {
		t.Fatalf("Seeding the database failed: %v", err)
	}

	b := f.open(ctx, "Acme", "Tool")
	b.Set(ctx, "theme", "dark")

	awaitReady(t, f, b)

	if value, _ := b.Get(ctx, "theme"); value != "dark" {
		t.Errorf("Expected the buffered write to survive hydration, got %v", value)
	}
	if value, _ := b.Get(ctx, "language"); value != "de" {
		t.Errorf("Expected the hydrated value alongside it, got %v", value)
	}

	b.Sync(ctx)
	pump(t, f.loop, func() bool {
		blob, err := f.db.Load(ctx, path)
		return err == nil && strings.Contains(string(blob), "theme")
	})

	blob, err := f.db.Load(ctx, path)
	if err != nil {
		t.Fatalf("Loading the stored blob failed: %v", err)
	}
	if !strings.Contains(string(blob), "language=de") || !strings.Contains(string(blob), "theme=dark") {
		t.Errorf("Expected both entries in the stored blob, got %q", blob)
	}
}

func TestSyncRoundTripsThroughSecondInstance(t *testing.T) {
	ctx := t.Context()
	f := newFixture()

	b := f.open(ctx, "Acme", "Tool")
	awaitReady(t, f, b)

	b.Set(ctx, "window/width", 1280)
	b.Sync(ctx)
	pump(t, f.loop, func() bool { return f.db.Len() == 1 })

	// A second instance over a fresh filesystem only sees what the
	// database holds.
	fs2 := memfs.New()
	second := NewWebIDBBackend(ctx, f.client, f.registry, fs2, data.ScopeUser, "Acme", "Tool", nil)
	pump(t, f.loop, func() bool { return second.State() == StateReady || second.State() == StateFailed })

	if second.State() != StateReady {
		t.Fatalf("Expected the second instance to hydrate, got %s", second.State())
	}
	width, ok := second.Get(ctx, "window/width")
	if !ok {
		t.Fatal("Expected the synced value to be present")
	}
	if width != "1280" {
		t.Errorf("Expected '1280', got %v", width)
	}
}

func TestChildrenIgnoreReadiness(t *testing.T) {
	ctx := t.Context()
	f := newFixture()

	b := f.open(ctx, "Acme", "Tool")
	b.Set(ctx, "window/width", 1024)

	groups := b.Children(ctx, "", data.ChildGroups)
	if len(groups) != 1 || groups[0] != "window" {
		t.Errorf("Expected buffered writes to enumerate before readiness, got %v", groups)
	}
}

func TestFailureIsTerminal(t *testing.T) {
	ctx := t.Context()
	f := newFixture()
	f.db.SetFaults(memory.Faults{Exists: errors.New("database offline")})

	b := f.open(ctx, "Acme", "Tool")
	pump(t, f.loop, func() bool { return b.State() == StateFailed })

	if b.Status() != data.StatusAccessError {
		t.Errorf("Expected access error, got %s", b.Status())
	}
	if b.IsWritable() {
		t.Error("Expected a failed instance to be unwritable")
	}

	// Recovery is a new instance, not a retry.
	f.db.SetFaults(memory.Faults{})
	b.Set(ctx, "x", 1)
	b.Sync(ctx)

	if b.State() != StateFailed {
		t.Errorf("Expected failure to be terminal, got %s", b.State())
	}
	if f.db.Len() != 0 {
		t.Error("Expected no blob stored by a failed instance")
	}
}

func TestStoreFailureParksReadyInstance(t *testing.T) {
	ctx := t.Context()
	f := newFixture()

	b := f.open(ctx, "Acme", "Tool")
	awaitReady(t, f, b)

	b.Set(ctx, "x", 1)
	f.db.SetFaults(memory.Faults{Store: errors.New("quota exhausted")})
	b.Sync(ctx)
	pump(t, f.loop, func() bool { return b.State() == StateFailed })

	if b.Status() != data.StatusAccessError {
		t.Errorf("Expected access error, got %s", b.Status())
	}
	if _, ok := b.Get(ctx, "x"); ok {
		t.Error("Expected absent reads from a failed instance")
	}
}

func TestClearDeletesStoredBlob(t *testing.T) {
	ctx := t.Context()
	f := newFixture()
	path := keyspace.ConfPath(data.ScopeUser, "Acme", "Tool")

	if err := f.db.Store(ctx, path, []byte("[General]\nlanguage=de\n")); err != nil {
		t.Fatalf("Seeding the database failed: %v", err)
	}

	b := f.open(ctx, "Acme", "Tool")
	awaitReady(t, f, b)

	b.Clear(ctx)
	if _, ok := b.Get(ctx, "language"); ok {
		t.Error("Expected the engine to be empty right after clear")
	}

	pump(t, f.loop, func() bool { return f.db.Len() == 0 })
}

func TestCloseBeforeCompletionIsSafe(t *testing.T) {
	f := newFixture()

	b := f.open(t.Context(), "Acme", "Tool")
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if f.registry.Len() != 0 {
		t.Errorf("Expected the instance to be deregistered, got %d entries", f.registry.Len())
	}

	// Let the orphaned existence check arrive and run; it must be dropped.
	deadline := time.Now().Add(2 * time.Second)
	for f.loop.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	f.loop.Tick()

	if b.State() == StateReady {
		t.Error("Expected the dropped completion to leave the gate shut")
	}
}

func TestClosePersistsUnsavedChanges(t *testing.T) {
	ctx := t.Context()
	f := newFixture()

	b := f.open(ctx, "Acme", "Tool")
	awaitReady(t, f, b)

	b.Set(ctx, "language", "fi")
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The final store's completion finds no owner, but the write itself
	// must still reach the database.
	path := keyspace.ConfPath(data.ScopeUser, "Acme", "Tool")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		exists, err := f.db.Exists(ctx, path)
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if exists {
			break
		}
		time.Sleep(time.Millisecond)
	}

	blob, err := f.db.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !strings.Contains(string(blob), "language") {
		t.Errorf("Expected the unsaved change in the stored blob, got:\n%s", blob)
	}

	// An untouched instance closes without issuing a store.
	second := f.open(ctx, "Fresh", "Tool")
	awaitReady(t, f, second)
	if err := second.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if exists, _ := f.db.Exists(ctx, keyspace.ConfPath(data.ScopeUser, "Fresh", "Tool")); exists {
		t.Error("Expected no store from closing an untouched instance")
	}
}

func TestEmptyOrganizationIsAccessError(t *testing.T) {
	ctx := t.Context()
	f := newFixture()

	b := f.open(ctx, "", "Tool")
	if b.Status() != data.StatusAccessError {
		t.Errorf("Expected access error, got %s", b.Status())
	}
	if b.State() != StateFailed {
		t.Errorf("Expected failed state, got %s", b.State())
	}
	if b.IsWritable() {
		t.Error("Expected unwritable")
	}
	if f.registry.Len() != 0 {
		t.Error("Expected no registration for a disabled instance")
	}

	b.Set(ctx, "x", 1)
	b.Sync(ctx)
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if f.db.Len() != 0 {
		t.Error("Expected no physical writes")
	}
}
