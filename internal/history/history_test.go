package history

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndRecent(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := store.SaveSnapshot(Snapshot{
			Timestamp:      base.Add(time.Duration(i) * time.Hour),
			ModuleCount:    100 + i,
			ResolvedCount:  10 * i,
			CycleCount:     i,
			UsedFallback:   i == 2,
			RequestedCount: 2,
		})
		if err != nil {
			t.Fatalf("SaveSnapshot failed: %v", err)
		}
	}

	snaps, err := store.Recent(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].ModuleCount != 102 {
		t.Errorf("Expected newest first, got module count %d", snaps[0].ModuleCount)
	}
	if !snaps[0].UsedFallback {
		t.Error("Fallback flag lost in round trip")
	}
	if snaps[0].RunID == "" {
		t.Error("Expected generated run ID")
	}
}

func TestSaveSnapshot_UpsertByRunID(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	runID, err := store.SaveSnapshot(Snapshot{ModuleCount: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveSnapshot(Snapshot{RunID: runID, ModuleCount: 2}); err != nil {
		t.Fatal(err)
	}

	snaps, err := store.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 {
		t.Fatalf("Expected upsert to keep one row, got %d", len(snaps))
	}
	if snaps[0].ModuleCount != 2 {
		t.Errorf("Expected updated row, got %d", snaps[0].ModuleCount)
	}
}

func TestOpen_Validation(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Expected error for empty path")
	}
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("Expected error for directory path")
	}
}
