package layers

import (
	"context"
	"fmt"

	"github.com/loopvault/loopvault/internal/execx"
	"github.com/loopvault/loopvault/internal/fsops"
)

// FilesystemMount mounts the decrypted volume's block node on the local data
// mount point.
type FilesystemMount struct {
	run       execx.Runner
	fs        fsops.FS
	mounts    MountTable
	device    string
	dataPoint string
}

// NewFilesystemMount creates the filesystem mount layer. device is the
// device-mapper node of the unlocked volume.
func NewFilesystemMount(run execx.Runner, fs fsops.FS, mounts MountTable, device, dataPoint string) *FilesystemMount {
	return &FilesystemMount{run: run, fs: fs, mounts: mounts, device: device, dataPoint: dataPoint}
}

// Name identifies the layer.
func (l *FilesystemMount) Name() string { return "filesystem mount" }

// Open creates the data mount point if absent and mounts the decrypted
// volume there. Opening an already-mounted filesystem is a no-op.
func (l *FilesystemMount) Open(ctx context.Context) error {
	mounted, err := l.mounts.IsMounted(l.dataPoint)
	if err != nil {
		return err
	}
	if mounted {
		return nil
	}

	if err := l.fs.MkdirAll(l.dataPoint, 0755); err != nil {
		return fmt.Errorf("failed to create data mount point: %w", err)
	}

	_, err = l.run.Run(ctx, execx.Command{
		Caption: fmt.Sprintf("mounting %s on %s", l.device, l.dataPoint),
		Argv:    []string{"mount", l.device, l.dataPoint},
	})
	return err
}

// Close unmounts the data mount point. Closing an unmounted filesystem is a
// no-op.
func (l *FilesystemMount) Close(ctx context.Context) error {
	mounted, err := l.mounts.IsMounted(l.dataPoint)
	if err != nil {
		return err
	}
	if !mounted {
		return nil
	}

	_, err = l.run.Run(ctx, execx.Command{
		Caption: fmt.Sprintf("unmounting filesystem from %s", l.dataPoint),
		Argv:    []string{"umount", l.dataPoint},
	})
	return err
}

// Format writes an ext4 filesystem onto the decrypted volume. Irreversibly
// destroys the volume's contents.
func (l *FilesystemMount) Format(ctx context.Context) error {
	_, err := l.run.Run(ctx, execx.Command{
		Caption:     fmt.Sprintf("creating filesystem on %s", l.device),
		Argv:        []string{"mkfs.ext4", "-q", l.device},
		Destructive: true,
	})
	return err
}
