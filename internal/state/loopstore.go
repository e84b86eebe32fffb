// Package state persists the identifiers that outlive a single invocation:
// the allocated loop-device path and the advisory lock guarding mutating
// workflows.
package state

import (
	"fmt"
	"os"
	"strings"

	"github.com/loopvault/loopvault/internal/fsops"
)

// LoopStore records the path of the currently-allocated loop device so a
// later invocation can release it. The file's presence is the sole source of
// truth for "a loop device is allocated".
type LoopStore interface {
	// Load returns the persisted device path. Returns os.ErrNotExist when
	// no device is allocated.
	Load() (string, error)

	// Save persists the device path atomically.
	Save(device string) error

	// Clear removes the persisted path. Clearing an absent path is a no-op.
	Clear() error
}

// FileLoopStore implements LoopStore as a single line of plain text at a
// fixed path, readable by operators and other tools.
type FileLoopStore struct {
	fs   fsops.FS
	path string
}

// NewFileLoopStore creates a FileLoopStore at path.
func NewFileLoopStore(fs fsops.FS, path string) *FileLoopStore {
	return &FileLoopStore{fs: fs, path: path}
}

// Load returns the persisted device path.
func (s *FileLoopStore) Load() (string, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", os.ErrNotExist
		}
		return "", fmt.Errorf("failed to read loop device file: %w", err)
	}

	device := strings.TrimSpace(string(data))
	if device == "" {
		return "", os.ErrNotExist
	}
	return device, nil
}

// Save persists the device path atomically.
func (s *FileLoopStore) Save(device string) error {
	if device == "" {
		return fmt.Errorf("refusing to persist empty loop device path")
	}
	if err := s.fs.AtomicWrite(s.path, []byte(device+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write loop device file: %w", err)
	}
	return nil
}

// Clear removes the persisted path.
func (s *FileLoopStore) Clear() error {
	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove loop device file: %w", err)
	}
	return nil
}

// MemLoopStore implements LoopStore in memory for testing.
type MemLoopStore struct {
	device string
	set    bool
}

// NewMemLoopStore creates an empty MemLoopStore.
func NewMemLoopStore() *MemLoopStore {
	return &MemLoopStore{}
}

// Load returns the stored device path.
func (s *MemLoopStore) Load() (string, error) {
	if !s.set {
		return "", os.ErrNotExist
	}
	return s.device, nil
}

// Save stores the device path.
func (s *MemLoopStore) Save(device string) error {
	s.device = device
	s.set = true
	return nil
}

// Clear forgets the device path.
func (s *MemLoopStore) Clear() error {
	s.device = ""
	s.set = false
	return nil
}
