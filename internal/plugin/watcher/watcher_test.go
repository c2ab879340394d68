package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := New(WithDelay(30 * time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	if err := w.Add(root); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return w
}

func waitChange(t *testing.T, w *Watcher) Change {
	t.Helper()
	select {
	case c, ok := <-w.Changes():
		if !ok {
			t.Fatal("changes channel closed")
		}
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	return Change{}
}

func write(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherDirectoryPlugin(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "notes")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	write(t, filepath.Join(dir, "init.lua"), "-- v1")
	w := newTestWatcher(t, root)

	// several saves coalesce into one change
	for i := 0; i < 3; i++ {
		write(t, filepath.Join(dir, "init.lua"), "-- v2")
	}
	c := waitChange(t, w)
	if c.Key != "notes" || c.Op != OpChanged {
		t.Errorf("change = %+v", c)
	}
	if filepath.Base(c.Path) != "notes" {
		t.Errorf("Path = %q", c.Path)
	}

	select {
	case extra := <-w.Changes():
		t.Errorf("unexpected extra change %+v", extra)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcherSingleFileAndRemoval(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "solo.lua")
	write(t, file, "-- v1")
	w := newTestWatcher(t, root)

	write(t, file, "-- v2")
	if c := waitChange(t, w); c.Key != "solo" || c.Op != OpChanged {
		t.Errorf("write change = %+v", c)
	}

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}
	if c := waitChange(t, w); c.Key != "solo" || c.Op != OpRemoved {
		t.Errorf("remove change = %+v", c)
	}
}

func TestWatcherNewPluginDirectory(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	dir := filepath.Join(root, "fresh")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if c := waitChange(t, w); c.Key != "fresh" {
		t.Errorf("create change = %+v", c)
	}

	write(t, filepath.Join(dir, "init.lua"), "-- new")
	if c := waitChange(t, w); c.Key != "fresh" || c.Op != OpChanged {
		t.Errorf("file change = %+v", c)
	}
}

func TestWatcherIgnoresHidden(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	write(t, filepath.Join(root, ".hidden.lua"), "")
	write(t, filepath.Join(root, "backup.lua~"), "")
	select {
	case c := <-w.Changes():
		t.Errorf("unexpected change %+v", c)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherErrors(t *testing.T) {
	w, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Add(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrPathNotExist) {
		t.Errorf("Add(missing) error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.Add(t.TempDir()); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Add after Close error = %v", err)
	}
	if _, ok := <-w.Changes(); ok {
		t.Error("Changes() should be closed")
	}
}

func TestOpString(t *testing.T) {
	if OpChanged.String() != "CHANGED" || OpRemoved.String() != "REMOVED" || Op(0).String() != "UNKNOWN" {
		t.Error("Op.String mismatch")
	}
	if !(OpChanged | OpRemoved).Has(OpRemoved) {
		t.Error("Has mismatch")
	}
}
