package layers

import (
	"context"
	"fmt"

	"github.com/loopvault/loopvault/internal/execx"
	"github.com/loopvault/loopvault/internal/fsops"
)

// RemoteMount mounts the remote backup directory onto a local mount point
// over sshfs.
type RemoteMount struct {
	run        execx.Runner
	fs         fsops.FS
	mounts     MountTable
	remote     string
	mountPoint string
}

// NewRemoteMount creates the remote mount layer.
func NewRemoteMount(run execx.Runner, fs fsops.FS, mounts MountTable, remote, mountPoint string) *RemoteMount {
	return &RemoteMount{run: run, fs: fs, mounts: mounts, remote: remote, mountPoint: mountPoint}
}

// Name identifies the layer.
func (l *RemoteMount) Name() string { return "remote mount" }

// Open creates the mount point if absent and mounts the remote location.
// Opening an already-mounted remote is a no-op.
func (l *RemoteMount) Open(ctx context.Context) error {
	mounted, err := l.mounts.IsMounted(l.mountPoint)
	if err != nil {
		return err
	}
	if mounted {
		return nil
	}

	if err := l.fs.MkdirAll(l.mountPoint, 0755); err != nil {
		return fmt.Errorf("failed to create remote mount point: %w", err)
	}

	_, err = l.run.Run(ctx, execx.Command{
		Caption: fmt.Sprintf("mounting %s on %s", l.remote, l.mountPoint),
		Argv:    []string{"sshfs", l.remote, l.mountPoint},
	})
	return err
}

// Close unmounts the remote directory. Closing an unmounted remote is a
// no-op.
func (l *RemoteMount) Close(ctx context.Context) error {
	mounted, err := l.mounts.IsMounted(l.mountPoint)
	if err != nil {
		return err
	}
	if !mounted {
		return nil
	}

	_, err = l.run.Run(ctx, execx.Command{
		Caption: fmt.Sprintf("unmounting remote directory from %s", l.mountPoint),
		Argv:    []string{"fusermount", "-u", l.mountPoint},
	})
	return err
}
