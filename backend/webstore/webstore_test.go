package webstore

import (
	"testing"

	"github.com/mwantia/prefs/data"
	"github.com/mwantia/prefs/kvstore/memory"
)

func TestSetWritesMostSpecificPrefix(t *testing.T) {
	ctx := t.Context()
	store := memory.NewMemoryStore(nil)
	backend := NewWebStoreBackend(store, data.ScopeUser, "Acme", "Tool", true, nil)

	backend.Set(ctx, "x", 17)

	stored, ok, err := store.GetItem(ctx, "qt-v0-Acme-Tool-x")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected the value under the application prefix")
	}
	if stored != "17" {
		t.Errorf("Expected rendered '17', got '%s'", stored)
	}

	value, ok := backend.Get(ctx, "x")
	if !ok || value != "17" {
		t.Errorf("Expected '17' back, got %#v (ok=%v)", value, ok)
	}
}

func TestGetFallsBackThroughPrefixes(t *testing.T) {
	ctx := t.Context()
	store := memory.NewMemoryStore(nil)

	// An organization-wide default, written outside the application prefix.
	if err := store.SetItem(ctx, "qt-v0-Acme-all-apps-theme", "dark"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}

	withFallbacks := NewWebStoreBackend(store, data.ScopeUser, "Acme", "Tool", true, nil)
	value, ok := withFallbacks.Get(ctx, "theme")
	if !ok || value != "dark" {
		t.Errorf("Expected fallback value 'dark', got %#v (ok=%v)", value, ok)
	}

	withoutFallbacks := NewWebStoreBackend(store, data.ScopeUser, "Acme", "Tool", false, nil)
	if _, ok := withoutFallbacks.Get(ctx, "theme"); ok {
		t.Error("Expected no fallback read when fallbacks are disabled")
	}

	// The application prefix shadows the fallback once written.
	withFallbacks.Set(ctx, "theme", "light")
	value, ok = withFallbacks.Get(ctx, "theme")
	if !ok || value != "light" {
		t.Errorf("Expected shadowing value 'light', got %#v (ok=%v)", value, ok)
	}
}

func TestRemoveSubtreeKeepsFallbackEntries(t *testing.T) {
	ctx := t.Context()
	store := memory.NewMemoryStore(nil)
	backend := NewWebStoreBackend(store, data.ScopeUser, "Acme", "Tool", true, nil)

	backend.Set(ctx, "window/width", 1024)
	backend.Set(ctx, "window/height", 768)
	backend.Set(ctx, "windowless", true)
	if err := store.SetItem(ctx, "qt-v0-Acme-all-apps-window/width", "640"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}

	backend.Remove(ctx, "window")

	if _, ok, _ := store.GetItem(ctx, "qt-v0-Acme-Tool-window/width"); ok {
		t.Error("Expected subtree entry to be removed")
	}
	if _, ok, _ := store.GetItem(ctx, "qt-v0-Acme-Tool-window/height"); ok {
		t.Error("Expected subtree entry to be removed")
	}
	// Prefix-sharing keys and fallback entries are untouched.
	if _, ok, _ := store.GetItem(ctx, "qt-v0-Acme-Tool-windowless"); !ok {
		t.Error("Expected unrelated key to survive")
	}
	if _, ok, _ := store.GetItem(ctx, "qt-v0-Acme-all-apps-window/width"); !ok {
		t.Error("Expected fallback entry to survive removal")
	}

	// The removed key is now served by the fallback again.
	value, ok := backend.Get(ctx, "window/width")
	if !ok || value != "640" {
		t.Errorf("Expected fallback '640' after removal, got %#v (ok=%v)", value, ok)
	}
}

func TestChildrenMergesPrefixes(t *testing.T) {
	ctx := t.Context()
	store := memory.NewMemoryStore(nil)
	backend := NewWebStoreBackend(store, data.ScopeUser, "Acme", "Tool", true, nil)

	backend.Set(ctx, "language", "en")
	backend.Set(ctx, "window/width", 1024)
	if err := store.SetItem(ctx, "qt-v0-Acme-all-apps-language", "de"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	if err := store.SetItem(ctx, "qt-v0-Acme-all-apps-proxy/host", "example"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	// A foreign organization must stay invisible.
	if err := store.SetItem(ctx, "qt-v0-Other-Tool-language", "fr"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}

	keys := backend.Children(ctx, "", data.ChildKeys)
	if len(keys) != 1 || keys[0] != "language" {
		t.Errorf("Expected deduplicated root keys [language], got %v", keys)
	}

	groups := backend.Children(ctx, "", data.ChildGroups)
	if len(groups) != 2 || groups[0] != "proxy" || groups[1] != "window" {
		t.Errorf("Expected root groups [proxy window], got %v", groups)
	}
}

func TestChildrenSeeSystemEntries(t *testing.T) {
	ctx := t.Context()
	store := memory.NewMemoryStore(nil)
	backend := NewWebStoreBackend(store, data.ScopeUser, "Acme", "Tool", true, nil)

	if err := store.SetItem(ctx, "qt-v0-Acme-all-apps-sys-tem-region", "eu"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}

	// The entry is visible through two prefix views: the system fallback
	// strips the full prefix, the shorter all-apps view leaves the scope
	// marker attached.
	keys := backend.Children(ctx, "", data.ChildKeys)
	if len(keys) != 2 || keys[0] != "region" || keys[1] != "sys-tem-region" {
		t.Errorf("Expected [region sys-tem-region], got %v", keys)
	}

	value, ok := backend.Get(ctx, "region")
	if !ok || value != "eu" {
		t.Errorf("Expected the system entry through fallback, got %#v (ok=%v)", value, ok)
	}
}

func TestClearOnlyWritablePrefix(t *testing.T) {
	ctx := t.Context()
	store := memory.NewMemoryStore(nil)
	backend := NewWebStoreBackend(store, data.ScopeUser, "Acme", "Tool", true, nil)

	backend.Set(ctx, "a", 1)
	backend.Set(ctx, "g/b", 2)
	if err := store.SetItem(ctx, "qt-v0-Acme-all-apps-a", "org"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}

	backend.Clear(ctx)

	if _, ok, _ := store.GetItem(ctx, "qt-v0-Acme-Tool-a"); ok {
		t.Error("Expected writable entry to be cleared")
	}
	if _, ok, _ := store.GetItem(ctx, "qt-v0-Acme-all-apps-a"); !ok {
		t.Error("Expected fallback entry to survive clear")
	}

	// The fallback shines through after the clear.
	value, ok := backend.Get(ctx, "a")
	if !ok || value != "org" {
		t.Errorf("Expected fallback 'org' after clear, got %#v (ok=%v)", value, ok)
	}
}

func TestEmptyOrganizationIsAccessError(t *testing.T) {
	ctx := t.Context()
	store := memory.NewMemoryStore(nil)
	backend := NewWebStoreBackend(store, data.ScopeUser, "", "Tool", true, nil)

	if backend.Status() != data.StatusAccessError {
		t.Errorf("Expected StatusAccessError, got %v", backend.Status())
	}
	if backend.IsWritable() {
		t.Error("Expected an unwritable backend")
	}

	// Writes are dropped, reads see nothing, nothing panics.
	backend.Set(ctx, "x", 1)
	if _, ok := backend.Get(ctx, "x"); ok {
		t.Error("Expected no value from a failed backend")
	}
	if count, _ := store.Len(ctx); count != 0 {
		t.Errorf("Expected nothing in the store, got %d entries", count)
	}
}

func TestQuotaErrorIsAbsorbed(t *testing.T) {
	ctx := t.Context()
	store := memory.NewMemoryStore(&memory.Config{Quota: 64})
	backend := NewWebStoreBackend(store, data.ScopeUser, "Acme", "Tool", true, nil)

	backend.Set(ctx, "big", string(make([]byte, 256)))

	if backend.Status() != data.StatusAccessError {
		t.Errorf("Expected StatusAccessError after quota rejection, got %v", backend.Status())
	}
	if _, ok := backend.Get(ctx, "big"); ok {
		t.Error("Expected the dropped write to be absent")
	}
	// The backend keeps serving after the absorbed failure.
	backend.Set(ctx, "small", 1)
	if _, ok := backend.Get(ctx, "small"); !ok {
		t.Error("Expected writes to keep working after an absorbed quota error")
	}
}

func TestScenarioRoundTrip(t *testing.T) {
	ctx := t.Context()
	store := memory.NewMemoryStore(nil)

	writer := NewWebStoreBackend(store, data.ScopeUser, "Acme", "Tool", true, nil)
	writer.Set(ctx, "x", 17)

	// A fresh instance over the same store sees the value under the same
	// physical key.
	reader := NewWebStoreBackend(store, data.ScopeUser, "Acme", "Tool", true, nil)
	value, ok := reader.Get(ctx, "x")
	if !ok || value != "17" {
		t.Errorf("Expected '17', got %#v (ok=%v)", value, ok)
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "qt-v0-Acme-Tool-x" {
		t.Errorf("Expected physical key [qt-v0-Acme-Tool-x], got %v", keys)
	}

	if children := reader.Children(ctx, "", data.ChildKeys); len(children) != 1 || children[0] != "x" {
		t.Errorf("Expected children [x], got %v", children)
	}
}
