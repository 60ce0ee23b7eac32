package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_RegistryFileChange(t *testing.T) {
	tmpDir := t.TempDir()
	registryFile := filepath.Join(tmpDir, "startup.js")
	if err := os.WriteFile(registryFile, []byte("mw.loader.register([]);"), 0644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 1)
	w, err := NewWatcher(100*time.Millisecond, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{registryFile}); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(registryFile, []byte(`mw.loader.register([["a","v1"]]);`), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case paths := <-changed:
		abs, _ := filepath.Abs(registryFile)
		found := false
		for _, p := range paths {
			if p == abs {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %s in changed paths %v", abs, paths)
		}
	case <-time.After(2 * time.Second):
		t.Error("Timed out waiting for registry change event")
	}
}

func TestWatcher_IgnoresUnwatchedSiblings(t *testing.T) {
	tmpDir := t.TempDir()
	registryFile := filepath.Join(tmpDir, "startup.js")
	os.WriteFile(registryFile, []byte("x"), 0644)

	changed := make(chan []string, 1)
	w, err := NewWatcher(50*time.Millisecond, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{registryFile}); err != nil {
		t.Fatal(err)
	}

	// A different file in the same directory must not fire.
	os.WriteFile(filepath.Join(tmpDir, "other.js"), []byte("y"), 0644)

	select {
	case paths := <-changed:
		t.Errorf("Unwatched sibling triggered event: %v", paths)
	case <-time.After(300 * time.Millisecond):
		// Expected
	}
}

func TestWatcher_DebounceCoalesces(t *testing.T) {
	tmpDir := t.TempDir()
	registryFile := filepath.Join(tmpDir, "startup.js")
	os.WriteFile(registryFile, []byte("x"), 0644)

	changed := make(chan []string, 4)
	w, err := NewWatcher(200*time.Millisecond, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{registryFile}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		os.WriteFile(registryFile, []byte{byte('a' + i)}, 0644)
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for coalesced event")
	}

	select {
	case paths := <-changed:
		t.Errorf("Burst produced more than one callback: %v", paths)
	case <-time.After(400 * time.Millisecond):
		// Expected: one callback for the whole burst
	}
}
