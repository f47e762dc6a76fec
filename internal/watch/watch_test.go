package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, path string) *Watcher {
	t.Helper()
	w, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_DetectsChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plan.json")
	if err := os.WriteFile(file, []byte("[]"), 0o644); err != nil {
		t.Fatalf("failed to create project file: %v", err)
	}

	w := startWatcher(t, file)

	if err := os.WriteFile(file, []byte(`[{"id":"A","start":"2024-01-01"}]`), 0o644); err != nil {
		t.Fatalf("failed to update project file: %v", err)
	}

	select {
	case change := <-w.Changes:
		if change.Kind != ChangeModified {
			t.Errorf("expected ChangeModified, got %s", change.Kind)
		}
		if change.Path != w.Path {
			t.Errorf("Path = %q, want %q", change.Path, w.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plan.yaml")
	w := startWatcher(t, file)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(file, []byte("[]"), 0o644); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	select {
	case <-w.Changes:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	select {
	case change := <-w.Changes:
		t.Errorf("burst produced a second change: %+v", change)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_DetectsRemoval(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plan.toml")
	if err := os.WriteFile(file, []byte(""), 0o644); err != nil {
		t.Fatalf("failed to create project file: %v", err)
	}
	w := startWatcher(t, file)

	if err := os.Remove(file); err != nil {
		t.Fatalf("remove: %v", err)
	}

	select {
	case change := <-w.Changes:
		if change.Kind != ChangeRemoved {
			t.Errorf("expected ChangeRemoved, got %s", change.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for removal event")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, filepath.Join(dir, "plan.json"))

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}

	select {
	case change := <-w.Changes:
		t.Errorf("unexpected change event: %+v", change)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StartFailsForMissingDir(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "absent", "plan.json"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err == nil {
		w.Stop()
		t.Fatal("expected Start to fail for a missing directory")
	}
}

func TestWatcher_FullBufferDoesNotBlock(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plan.json")
	w, err := New(file)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Nobody reads Changes, so the buffer fills and further changes drop.
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(w.changes)+4; i++ {
			w.emit()
		}
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit or Stop blocked on a full Changes buffer")
	}
	n := 0
	for range w.Changes {
		n++
	}
	if n != cap(w.changes) {
		t.Errorf("drained %d changes, want %d", n, cap(w.changes))
	}
}
