package layers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/loopvault/loopvault/internal/fsops"
)

// MountTable reports whether a path is currently an active mount point,
// independent of anything this process has done.
type MountTable interface {
	IsMounted(path string) (bool, error)
}

// ProcMounts implements MountTable by reading the kernel mount table.
type ProcMounts struct {
	fs   fsops.FS
	path string
}

// NewProcMounts creates a ProcMounts reading /proc/self/mounts.
func NewProcMounts(fs fsops.FS) *ProcMounts {
	return &ProcMounts{fs: fs, path: "/proc/self/mounts"}
}

// IsMounted reports whether path appears as a mount point.
func (m *ProcMounts) IsMounted(path string) (bool, error) {
	data, err := m.fs.ReadFile(m.path)
	if err != nil {
		return false, fmt.Errorf("failed to read mount table: %w", err)
	}

	target := filepath.Clean(path)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if unescapeMount(fields[1]) == target {
			return true, nil
		}
	}
	return false, nil
}

// unescapeMount decodes the octal escapes the kernel uses for whitespace in
// mount paths.
func unescapeMount(s string) string {
	r := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return r.Replace(s)
}

// FakeMountTable implements MountTable with a fixed set of mounted paths
// for testing.
type FakeMountTable struct {
	Mounted map[string]bool
}

// NewFakeMountTable creates an empty FakeMountTable.
func NewFakeMountTable() *FakeMountTable {
	return &FakeMountTable{Mounted: make(map[string]bool)}
}

// IsMounted reports the scripted state for path.
func (m *FakeMountTable) IsMounted(path string) (bool, error) {
	return m.Mounted[filepath.Clean(path)], nil
}
