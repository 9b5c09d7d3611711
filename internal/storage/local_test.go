package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveOpenRemove(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	path, n, err := store.Save("apt1", "pre-appointment", "a.pdf", strings.NewReader("%PDF-1.4 hello"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != 14 {
		t.Errorf("wrote %d bytes", n)
	}
	if want := filepath.Join(store.Root(), "appointments", "apt1", "pre-appointment", "a.pdf"); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}

	rc, size, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if size != 14 || string(body) != "%PDF-1.4 hello" {
		t.Errorf("read %d %q", size, body)
	}

	if err := store.Remove(path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(path); err != nil {
		t.Errorf("second Remove: %v", err)
	}
	if _, _, err := store.Open(path); !errors.Is(err, ErrNotExist) {
		t.Errorf("Open after remove: %v", err)
	}
}

func TestSaveRejectsTraversal(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	for _, name := range []string{"", "../x.pdf", "sub/x.pdf"} {
		if _, _, err := store.Save("apt", "pre-appointment", name, strings.NewReader("x")); err == nil {
			t.Errorf("Save(%q) succeeded", name)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestSaveCleansUpOnWriteError(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	if _, _, err := store.Save("apt", "post-appointment", "x.png", failingReader{}); err == nil {
		t.Fatal("expected error")
	}
	dir := filepath.Join(store.Root(), "appointments", "apt", "post-appointment")
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("leftover files: %v", entries)
	}
}

func TestNewStoredFilename(t *testing.T) {
	a, b := NewStoredFilename("Scan.JPG"), NewStoredFilename("Scan.JPG")
	if !strings.HasSuffix(a, ".jpg") || a == b || len(a) != 36+4 {
		t.Errorf("names %q %q", a, b)
	}
}
