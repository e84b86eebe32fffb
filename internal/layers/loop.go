package layers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/loopvault/loopvault/internal/execx"
	"github.com/loopvault/loopvault/internal/state"
)

// LoopDevice binds a free loop device to the image file on the remote mount
// and persists the allocated device path so a later invocation can release
// it.
type LoopDevice struct {
	run        execx.Runner
	store      state.LoopStore
	mounts     MountTable
	image      string
	mountPoint string
}

// NewLoopDevice creates the loop device layer. image is the image file path
// inside the remote mount; mountPoint is the remote mount point whose
// presence gates allocation.
func NewLoopDevice(run execx.Runner, store state.LoopStore, mounts MountTable, image, mountPoint string) *LoopDevice {
	return &LoopDevice{run: run, store: store, mounts: mounts, image: image, mountPoint: mountPoint}
}

// Name identifies the layer.
func (l *LoopDevice) Name() string { return "loop device" }

// Open allocates a free loop device bound to the image file and persists
// its path. Fails with ErrNotConnected when the remote mount is absent, so
// no device is ever allocated against a nonexistent image.
func (l *LoopDevice) Open(ctx context.Context) error {
	mounted, err := l.mounts.IsMounted(l.mountPoint)
	if err != nil {
		return err
	}
	if !mounted {
		return fmt.Errorf("%w: cannot attach loop device for %s", ErrNotConnected, l.image)
	}

	// The loop module load is one of the explicitly result-checked steps.
	if _, err := l.run.Run(ctx, execx.Command{
		Caption: "loading loop kernel module",
		Argv:    []string{"modprobe", "loop"},
	}); err != nil {
		return err
	}

	device, err := l.run.Run(ctx, execx.Command{
		Caption: fmt.Sprintf("attaching loop device to %s", l.image),
		Argv:    []string{"losetup", "--find", "--show", l.image},
	})
	if err != nil {
		return err
	}

	if device == "" {
		return fmt.Errorf("losetup reported no device for %s", l.image)
	}
	return l.store.Save(device)
}

// Close detaches the device named by the persisted identifier and deletes
// the identifier. Closing with no persisted identifier is a no-op.
func (l *LoopDevice) Close(ctx context.Context) error {
	device, err := l.store.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	if _, err := l.run.Run(ctx, execx.Command{
		Caption: fmt.Sprintf("detaching loop device %s", device),
		Argv:    []string{"losetup", "-d", device},
	}); err != nil {
		return err
	}
	return l.store.Clear()
}

// DetachAll removes every loop device system-wide and deletes the persisted
// identifier unconditionally. Escape hatch for recovering from inconsistent
// state outside the normal layer-by-layer close.
func (l *LoopDevice) DetachAll(ctx context.Context) error {
	if _, err := l.run.Run(ctx, execx.Command{
		Caption:     "detaching ALL loop devices system-wide",
		Argv:        []string{"losetup", "-D"},
		Destructive: true,
	}); err != nil {
		return err
	}
	return l.store.Clear()
}

// Device returns the persisted device path, or os.ErrNotExist when none is
// allocated.
func (l *LoopDevice) Device() (string, error) {
	return l.store.Load()
}
