package engine

import (
	"context"
	"errors"
	"os"
)

// StatusResult is a read-only snapshot of the stack, derived from the mount
// table and on-disk state rather than from whatever workflow last ran.
type StatusResult struct {
	// RemoteMounted reports whether the remote mount point is active.
	RemoteMounted bool

	// LoopDevice is the persisted loop device path, empty when none is
	// allocated.
	LoopDevice string

	// ImagePresent reports whether the image file exists on the remote
	// mount; ImageSize is its byte size when present.
	ImagePresent bool
	ImageSize    int64

	// VolumeOpen reports whether the decrypted mapper node exists.
	VolumeOpen bool

	// DataMounted reports whether the data mount point is active.
	DataMounted bool

	// KeyPresent reports whether the key file exists; KeySize is its byte
	// size when present.
	KeyPresent bool
	KeySize    int64

	// KeyPath is the key file location in use.
	KeyPath string
}

// Status inspects the current OS state. It never mutates anything and does
// not take the workflow lock, so it can run alongside another invocation.
func (e *Engine) Status(ctx context.Context) (*StatusResult, error) {
	result := &StatusResult{KeyPath: e.KeyPath()}

	mounted, err := e.mounts.IsMounted(e.paths.RemotePoint)
	if err != nil {
		return nil, err
	}
	result.RemoteMounted = mounted

	device, err := e.store.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	result.LoopDevice = device

	// The image is only visible while the remote is mounted.
	if info, err := e.fs.Stat(e.ImagePath()); err == nil {
		result.ImagePresent = true
		result.ImageSize = info.Size()
	}

	open, err := e.fs.Exists("/dev/mapper/" + e.cfg.VolumeName)
	if err != nil {
		return nil, err
	}
	result.VolumeOpen = open

	dataMounted, err := e.mounts.IsMounted(e.paths.DataPoint)
	if err != nil {
		return nil, err
	}
	result.DataMounted = dataMounted

	if info, err := e.fs.Stat(result.KeyPath); err == nil {
		result.KeyPresent = true
		result.KeySize = info.Size()
	}

	return result, nil
}
