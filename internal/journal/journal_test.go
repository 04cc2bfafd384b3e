package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// createTestStore opens a journal in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		dir := t.TempDir()
		store, err := Open(dir)
		if err != nil {
			t.Fatalf("Failed to open journal: %v", err)
		}
		defer store.Close()

		if _, err := os.Stat(filepath.Join(dir, "journal.duckdb")); os.IsNotExist(err) {
			t.Error("Expected journal file to be created")
		}
	})
}

func TestStore_RecordAndEntries(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	store.Record(Entry{SessionID: "s1", Kind: KindOpen, Accepted: true, Rungs: 1})
	store.Record(Entry{SessionID: "s1", Kind: KindDispatch, ActionType: "ADD_COMPONENT", Accepted: true, Revision: 1, Rungs: 1, Components: 1, Payload: `{"type":"ADD_COMPONENT"}`})
	store.Record(Entry{SessionID: "s2", Kind: KindOpen, Accepted: true})
	store.Record(Entry{SessionID: "s1", Kind: KindDispatch, ActionType: "ADD_COMPONENT", Accepted: false, Reason: "position occupied", Revision: 1})

	t.Run("buffered entries are visible", func(t *testing.T) {
		entries, err := store.Entries(ctx, "s1", 0)
		if err != nil {
			t.Fatalf("Entries failed: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("Expected 3 entries, got %d", len(entries))
		}
		if entries[0].Kind != KindOpen {
			t.Errorf("Expected first entry to be open, got %s", entries[0].Kind)
		}
		if entries[1].Payload != `{"type":"ADD_COMPONENT"}` {
			t.Errorf("Unexpected payload %q", entries[1].Payload)
		}
		if entries[2].Reason != "position occupied" || entries[2].Accepted {
			t.Errorf("Expected rejected entry, got %+v", entries[2])
		}
		if entries[0].Seq >= entries[1].Seq {
			t.Error("Expected ascending sequence numbers")
		}
	})

	t.Run("limit keeps the most recent", func(t *testing.T) {
		entries, err := store.Entries(ctx, "s1", 2)
		if err != nil {
			t.Fatalf("Entries failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(entries))
		}
		if entries[0].ActionType != "ADD_COMPONENT" || !entries[0].Accepted {
			t.Errorf("Expected accepted dispatch first, got %+v", entries[0])
		}
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := store.Stats(ctx, "s1")
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.Total != 2 || stats.Accepted != 1 || stats.Rejected != 1 {
			t.Errorf("Unexpected stats %+v", stats)
		}
		if stats.ByType["ADD_COMPONENT"] != 2 {
			t.Errorf("Expected 2 ADD_COMPONENT, got %d", stats.ByType["ADD_COMPONENT"])
		}
	})

	t.Run("purge", func(t *testing.T) {
		if err := store.Purge(ctx, "s2"); err != nil {
			t.Fatalf("Purge failed: %v", err)
		}
		entries, _ := store.Entries(ctx, "s2", 0)
		if len(entries) != 0 {
			t.Errorf("Expected no entries after purge, got %d", len(entries))
		}
	})
}

func TestStore_BatchFlush(t *testing.T) {
	store := createTestStore(t)
	store.SetBatchSize(2)

	for i := 0; i < 5; i++ {
		store.Record(Entry{SessionID: "s", Kind: KindDispatch, ActionType: "ADD_RUNG", Accepted: true})
	}
	if err := store.LastError(); err != nil {
		t.Fatalf("Unexpected flush error: %v", err)
	}

	entries, err := store.Entries(context.Background(), "s", 0)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("Expected 5 entries, got %d", len(entries))
	}
}

func TestStore_ReopenContinuesSequence(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	store.Record(Entry{SessionID: "s", Kind: KindOpen, Accepted: true})
	store.Record(Entry{SessionID: "s", Kind: KindClose, Accepted: true})
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	store, err = Open(dir)
	if err != nil {
		t.Fatalf("Failed to reopen journal: %v", err)
	}
	defer store.Close()
	store.Record(Entry{SessionID: "s", Kind: KindOpen, Accepted: true})

	entries, err := store.Entries(context.Background(), "s", 0)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 3 || entries[2].Seq != 3 {
		t.Errorf("Expected third entry with seq 3, got %+v", entries)
	}
}
