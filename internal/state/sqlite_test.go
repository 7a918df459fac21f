package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bakkerme/hkex-watch/internal/engine"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to init sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	want := sampleState()
	if err := store.Save(context.Background(), want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	assertStatesEqual(t, got, want)
}

func TestSQLiteStoreEmptyDatabaseYieldsEmptyState(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to init sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	state, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if state.TotalSeen() != 0 || state.Initialized {
		t.Fatalf("expected fresh empty state, got %+v", state)
	}
}

func TestSQLiteStoreSaveReplacesDocumentIndex(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to init sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	first := engine.NewState()
	first.SeenIDs[1] = struct{}{}
	first.Documents[1] = map[string]struct{}{"docA": {}, "docB": {}}
	first.Initialized = true
	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// docB dropped from the last-seen set; the stored index must follow.
	second := engine.NewState()
	second.SeenIDs[1] = struct{}{}
	second.Documents[1] = map[string]struct{}{"docA": {}}
	second.Initialized = true
	if err := store.Save(context.Background(), second); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got.Documents[1]) != 1 {
		t.Fatalf("expected document index replaced on save, got %v", got.Documents[1])
	}
	if _, ok := got.Documents[1]["docA"]; !ok {
		t.Fatalf("expected docA to survive, got %v", got.Documents[1])
	}
}
