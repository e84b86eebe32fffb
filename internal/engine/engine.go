// Package engine orchestrates the backup resource stack.
//
// The engine composes the four resource layers into named workflows (open,
// close, create, backup, plus single-layer recovery operations) and runs
// them in the mandated order under an advisory lock. A failed or aborted
// step triggers compensating closes of the layers opened so far.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/loopvault/loopvault/internal/config"
	"github.com/loopvault/loopvault/internal/execx"
	"github.com/loopvault/loopvault/internal/fsops"
	"github.com/loopvault/loopvault/internal/layers"
	"github.com/loopvault/loopvault/internal/state"
)

// Locker guards resource-mutating workflows against concurrent invocations.
type Locker interface {
	Acquire() error
	Release() error
}

// Engine runs workflows over the resource stack.
type Engine struct {
	cfg    *config.Config
	paths  *config.Paths
	run    execx.Runner
	fs     fsops.FS
	store  state.LoopStore
	mounts layers.MountTable
	lock   Locker
	out    func(format string, args ...interface{})

	remote *layers.RemoteMount
	loop   *layers.LoopDevice
	volume *layers.EncryptedVolume
	data   *layers.FilesystemMount
}

// New creates an Engine and wires the four layers.
func New(
	cfg *config.Config,
	paths *config.Paths,
	run execx.Runner,
	fs fsops.FS,
	store state.LoopStore,
	mounts layers.MountTable,
	lock Locker,
) *Engine {
	e := &Engine{
		cfg:    cfg,
		paths:  paths,
		run:    run,
		fs:     fs,
		store:  store,
		mounts: mounts,
		lock:   lock,
		out:    func(format string, args ...interface{}) { fmt.Printf(format+"\n", args...) },
	}

	e.remote = layers.NewRemoteMount(run, fs, mounts, cfg.Remote, paths.RemotePoint)
	e.loop = layers.NewLoopDevice(run, store, mounts, e.ImagePath(), paths.RemotePoint)
	e.volume = layers.NewEncryptedVolume(run, fs, store, cfg.VolumeName, e.KeyPath())
	e.data = layers.NewFilesystemMount(run, fs, mounts, e.volume.Node(), paths.DataPoint)

	return e
}

// SetOutput redirects progress messages, for tests.
func (e *Engine) SetOutput(out func(format string, args ...interface{})) {
	e.out = out
}

// ImagePath returns the image file path inside the remote mount.
func (e *Engine) ImagePath() string {
	return filepath.Join(e.paths.RemotePoint, e.cfg.ImageName)
}

// KeyPath returns the key file in use: the user-supplied path when
// configured, otherwise the generated key under the root directory.
func (e *Engine) KeyPath() string {
	if e.cfg.KeyFile != "" {
		return e.cfg.KeyFile
	}
	return filepath.Join(e.paths.Root, "key")
}

// invokingUser returns "uid:gid" of the operator, preferring the sudo caller
// over the effective (root) identity.
func invokingUser() string {
	uid := os.Getenv("SUDO_UID")
	gid := os.Getenv("SUDO_GID")
	if uid == "" || gid == "" {
		uid = strconv.Itoa(os.Getuid())
		gid = strconv.Itoa(os.Getgid())
	}
	return uid + ":" + gid
}

// requireRemote fails with ErrNotConnected unless the remote mount is
// currently active.
func (e *Engine) requireRemote(ctx context.Context) error {
	mounted, err := e.mounts.IsMounted(e.paths.RemotePoint)
	if err != nil {
		return err
	}
	if !mounted {
		return fmt.Errorf("%w: run open or debug connect first", layers.ErrNotConnected)
	}
	return nil
}
