package objectdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/mwantia/prefs/eventloop"
	"github.com/mwantia/prefs/objectdb"
	"github.com/mwantia/prefs/objectdb/memory"
)

func pump(t *testing.T, loop *eventloop.Loop, done func() bool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	if err := loop.Run(ctx, done); err != nil {
		t.Fatalf("Pumping the loop failed: %v", err)
	}
}

func TestStoreThenLoad(t *testing.T) {
	ctx := t.Context()
	loop := eventloop.New()
	client := objectdb.NewAsyncClient(memory.NewMemoryDatabase(), loop)

	stored := false
	client.Store(ctx, "/cfg", []byte("payload"), func(err error) {
		if err != nil {
			t.Errorf("Store completed with error: %v", err)
		}
		stored = true
	})
	pump(t, loop, func() bool { return stored })

	var loaded []byte
	client.Load(ctx, "/cfg", func(blob []byte, err error) {
		if err != nil {
			t.Errorf("Load completed with error: %v", err)
		}
		loaded = blob
	})
	pump(t, loop, func() bool { return loaded != nil })

	if string(loaded) != "payload" {
		t.Errorf("Expected 'payload', got %q", loaded)
	}
}

func TestCompletionsOnlyRunWhenPumped(t *testing.T) {
	ctx := t.Context()
	loop := eventloop.New()
	client := objectdb.NewAsyncClient(memory.NewMemoryDatabase(), loop)

	completed := false
	client.Store(ctx, "/cfg", []byte("x"), func(err error) {
		completed = true
	})

	// Give the worker goroutine time to finish and post.
	deadline := time.Now().Add(2 * time.Second)
	for loop.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if completed {
		t.Fatal("Completion ran before the loop was pumped")
	}
	loop.Tick()
	if !completed {
		t.Fatal("Completion did not run on tick")
	}
}

func TestExistsAndDelete(t *testing.T) {
	ctx := t.Context()
	loop := eventloop.New()
	db := memory.NewMemoryDatabase()
	client := objectdb.NewAsyncClient(db, loop)

	var seen *bool
	client.Exists(ctx, "/cfg", func(exists bool, err error) {
		if err != nil {
			t.Errorf("Exists completed with error: %v", err)
		}
		seen = &exists
	})
	pump(t, loop, func() bool { return seen != nil })
	if *seen {
		t.Error("Expected absence before store")
	}

	if err := db.Store(ctx, "/cfg", []byte("x")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	deleted := false
	client.Delete(ctx, "/cfg", func(err error) {
		if err != nil {
			t.Errorf("Delete completed with error: %v", err)
		}
		deleted = true
	})
	pump(t, loop, func() bool { return deleted })

	if db.Len() != 0 {
		t.Error("Expected blob to be deleted")
	}
}

func TestStoreCopiesBlob(t *testing.T) {
	ctx := t.Context()
	loop := eventloop.New()
	db := memory.NewMemoryDatabase()
	client := objectdb.NewAsyncClient(db, loop)

	blob := []byte("stable")
	stored := false
	client.Store(ctx, "/cfg", blob, func(err error) {
		stored = true
	})
	// Mutate immediately; the client must have copied already.
	blob[0] = 'X'

	pump(t, loop, func() bool { return stored })

	loaded, err := db.Load(ctx, "/cfg")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(loaded) != "stable" {
		t.Errorf("Expected 'stable', got %q", loaded)
	}
}
