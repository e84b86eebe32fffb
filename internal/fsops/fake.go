package fsops

import (
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"
)

// FakeFS implements FS with an in-memory file map for testing.
type FakeFS struct {
	files map[string][]byte
	perms map[string]os.FileMode
	dirs  map[string]bool

	// FailWrite, when set, is returned by AtomicWrite.
	FailWrite error
}

// NewFakeFS creates an empty FakeFS.
func NewFakeFS() *FakeFS {
	return &FakeFS{
		files: make(map[string][]byte),
		perms: make(map[string]os.FileMode),
		dirs:  make(map[string]bool),
	}
}

// Seed places a file into the fake filesystem.
func (f *FakeFS) Seed(path string, data []byte) {
	f.files[path] = data
	f.perms[path] = 0644
}

// Files returns the sorted list of file paths currently present.
func (f *FakeFS) Files() []string {
	paths := make([]string, 0, len(f.files))
	for p := range f.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Stat returns file info for path.
func (f *FakeFS) Stat(path string) (os.FileInfo, error) {
	if data, ok := f.files[path]; ok {
		return fakeFileInfo{name: path, size: int64(len(data))}, nil
	}
	if f.dirs[path] {
		return fakeFileInfo{name: path, dir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

// Exists checks if a path exists.
func (f *FakeFS) Exists(path string) (bool, error) {
	if _, ok := f.files[path]; ok {
		return true, nil
	}
	return f.dirs[path], nil
}

// MkdirAll records the directory and its parents as existing.
func (f *FakeFS) MkdirAll(path string, perm os.FileMode) error {
	for path != "/" && path != "." && path != "" {
		f.dirs[path] = true
		idx := strings.LastIndex(path, "/")
		if idx <= 0 {
			break
		}
		path = path[:idx]
	}
	return nil
}

// Remove removes a file. Missing files yield fs.ErrNotExist like the real FS.
func (f *FakeFS) Remove(path string) error {
	if _, ok := f.files[path]; !ok {
		if f.dirs[path] {
			delete(f.dirs, path)
			return nil
		}
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(f.files, path)
	delete(f.perms, path)
	return nil
}

// ReadFile reads the entire contents of a file.
func (f *FakeFS) ReadFile(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// AtomicWrite stores the file contents.
func (f *FakeFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	if f.FailWrite != nil {
		return f.FailWrite
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	f.files[path] = stored
	f.perms[path] = perm
	return nil
}

type fakeFileInfo struct {
	name string
	size int64
	dir  bool
}

func (i fakeFileInfo) Name() string       { return i.name }
func (i fakeFileInfo) Size() int64        { return i.size }
func (i fakeFileInfo) Mode() os.FileMode  { return 0644 }
func (i fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (i fakeFileInfo) IsDir() bool        { return i.dir }
func (i fakeFileInfo) Sys() interface{}   { return nil }
