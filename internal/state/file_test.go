package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bakkerme/hkex-watch/internal/engine"
)

func sampleState() *engine.State {
	state := engine.NewState()
	state.SeenIDs[101] = struct{}{}
	state.SeenIDs[102] = struct{}{}
	state.Documents[101] = map[string]struct{}{
		"https://example.com/docA": {},
		"https://example.com/docB": {},
	}
	state.Documents[102] = map[string]struct{}{}
	state.Initialized = true
	state.LastCheck = time.Now().UTC().Truncate(time.Second)
	return state
}

func assertStatesEqual(t *testing.T, got, want *engine.State) {
	t.Helper()
	if got.TotalSeen() != want.TotalSeen() {
		t.Fatalf("seen count mismatch: got %d want %d", got.TotalSeen(), want.TotalSeen())
	}
	for id := range want.SeenIDs {
		if !got.Seen(id) {
			t.Fatalf("listing %d missing from loaded state", id)
		}
	}
	if got.Initialized != want.Initialized {
		t.Fatalf("initialized mismatch: got %v want %v", got.Initialized, want.Initialized)
	}
	for id, refs := range want.Documents {
		if len(refs) == 0 {
			continue
		}
		gotRefs := got.Documents[id]
		if len(gotRefs) != len(refs) {
			t.Fatalf("listing %d documents mismatch: got %v want %v", id, gotRefs, refs)
		}
		for ref := range refs {
			if _, ok := gotRefs[ref]; !ok {
				t.Fatalf("listing %d lost document %q", id, ref)
			}
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("failed to init file store: %v", err)
	}

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

func TestFileStoreMissingFileYieldsEmptyState(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("failed to init file store: %v", err)
	}

	state, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if state.TotalSeen() != 0 || state.Initialized {
		t.Fatalf("expected fresh empty state, got %+v", state)
	}
}

func TestFileStoreCorruptFileResetsWithError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("failed to init file store: %v", err)
	}

	state, err := store.Load(context.Background())
	if err == nil {
		t.Fatal("expected an error for a corrupt state file")
	}
	if state == nil || state.TotalSeen() != 0 || state.Initialized {
		t.Fatalf("expected usable empty state alongside the error, got %+v", state)
	}
}

func TestFileStoreSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("failed to init file store: %v", err)
	}
	if err := store.Save(context.Background(), sampleState()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		t.Fatalf("expected only state.json in %s, got %v", dir, entries)
	}
}
