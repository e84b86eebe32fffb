package state

import (
	"errors"
	"os"
	"testing"

	"github.com/loopvault/loopvault/internal/fsops"
)

func TestFileLoopStore_SaveThenLoad(t *testing.T) {
	store := NewFileLoopStore(fsops.NewFakeFS(), "/vault/loopdev")

	if err := store.Save("/dev/loop3"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	device, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if device != "/dev/loop3" {
		t.Errorf("Load = %q, want /dev/loop3", device)
	}
}

func TestFileLoopStore_LoadAbsentReturnsNotExist(t *testing.T) {
	store := NewFileLoopStore(fsops.NewFakeFS(), "/vault/loopdev")

	if _, err := store.Load(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load on absent file = %v, want os.ErrNotExist", err)
	}
}

func TestFileLoopStore_EmptyFileMeansNoDevice(t *testing.T) {
	fs := fsops.NewFakeFS()
	fs.Seed("/vault/loopdev", []byte("\n"))
	store := NewFileLoopStore(fs, "/vault/loopdev")

	if _, err := store.Load(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load on empty file = %v, want os.ErrNotExist", err)
	}
}

func TestFileLoopStore_ClearIsIdempotent(t *testing.T) {
	store := NewFileLoopStore(fsops.NewFakeFS(), "/vault/loopdev")

	if err := store.Save("/dev/loop0"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("first Clear failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear failed: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, os.ErrNotExist) {
		t.Error("identifier still present after Clear")
	}
}

func TestFileLoopStore_RejectsEmptyDevice(t *testing.T) {
	store := NewFileLoopStore(fsops.NewFakeFS(), "/vault/loopdev")
	if err := store.Save(""); err == nil {
		t.Error("Save with empty device succeeded, want error")
	}
}

func TestFileLoopStore_PersistsAsSingleTextLine(t *testing.T) {
	fs := fsops.NewFakeFS()
	store := NewFileLoopStore(fs, "/vault/loopdev")

	if err := store.Save("/dev/loop7"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := fs.ReadFile("/vault/loopdev")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != "/dev/loop7\n" {
		t.Errorf("file contents = %q, want single line with trailing newline", data)
	}
}
