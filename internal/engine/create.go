package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/loopvault/loopvault/internal/execx"
	"github.com/loopvault/loopvault/internal/keys"
)

// ensureKey guarantees the unlock key exists. With a user-supplied key path
// configured, generation never runs. Otherwise a key is generated exactly
// once; an existing generated key is never touched.
func (e *Engine) ensureKey(ctx context.Context) error {
	if e.cfg.KeyFile != "" {
		exists, err := e.fs.Exists(e.cfg.KeyFile)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("configured key file %s does not exist", e.cfg.KeyFile)
		}
		return nil
	}

	path := e.KeyPath()
	exists, err := e.fs.Exists(path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	// Warn before the volume's key comes into existence: formatting with a
	// fresh key makes any previous image contents unreadable.
	if _, err := e.run.Run(ctx, execx.Notice(
		fmt.Sprintf("generating new key material at %s; volumes created with an earlier key become unreadable", path),
	)); err != nil {
		return err
	}

	generated, err := keys.Ensure(e.fs, path, e.cfg.KeySize)
	if err != nil {
		return err
	}
	if generated {
		e.out("generated %d-byte key at %s", e.cfg.KeySize, path)
	}
	return nil
}

// allocateImage creates the image file at the configured size inside the
// remote mount. The dd seek form allocates without transferring the full
// size over the network mount.
func (e *Engine) allocateImage(ctx context.Context) error {
	size, err := e.cfg.ImageBytes()
	if err != nil {
		return err
	}

	image := e.ImagePath()
	_, err = e.run.Run(ctx, execx.Command{
		Caption:     fmt.Sprintf("allocating %s image file %s", e.cfg.ImageSize, image),
		Argv:        []string{"dd", "if=/dev/zero", "of=" + image, "bs=1", "count=0", "seek=" + strconv.FormatInt(size, 10)},
		Destructive: true,
	})
	return err
}

// chownData hands the mounted tree to the invoking user so backups can run
// without privilege.
func (e *Engine) chownData(ctx context.Context) error {
	_, err := e.run.Run(ctx, execx.Command{
		Caption: fmt.Sprintf("setting owner of %s to %s", e.paths.DataPoint, invokingUser()),
		Argv:    []string{"chown", "-R", invokingUser(), e.paths.DataPoint},
	})
	return err
}

// syncData mirrors the configured source directory into the mounted
// filesystem.
func (e *Engine) syncData(ctx context.Context) error {
	if e.cfg.Source == "" {
		return fmt.Errorf("%w: source directory is not set", ErrNotConfigured)
	}

	argv := []string{"rsync", "-a", "--delete"}
	for _, pattern := range e.cfg.Excludes {
		argv = append(argv, "--exclude="+pattern)
	}
	argv = append(argv, e.cfg.Source+"/", e.paths.DataPoint+"/")

	_, err := e.run.Run(ctx, execx.Command{
		Caption: fmt.Sprintf("mirroring %s into %s", e.cfg.Source, e.paths.DataPoint),
		Argv:    argv,
	})
	return err
}
