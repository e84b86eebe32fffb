package layers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/loopvault/loopvault/internal/execx"
	"github.com/loopvault/loopvault/internal/fsops"
	"github.com/loopvault/loopvault/internal/state"
)

// EncryptedVolume unlocks the LUKS volume found on the allocated loop device
// and exposes it under a fixed device-mapper name.
type EncryptedVolume struct {
	run     execx.Runner
	fs      fsops.FS
	store   state.LoopStore
	volume  string
	keyFile string
}

// NewEncryptedVolume creates the encrypted volume layer. volume is the fixed
// logical name; the decrypted block node appears at /dev/mapper/<volume>.
func NewEncryptedVolume(run execx.Runner, fs fsops.FS, store state.LoopStore, volume, keyFile string) *EncryptedVolume {
	return &EncryptedVolume{run: run, fs: fs, store: store, volume: volume, keyFile: keyFile}
}

// Name identifies the layer.
func (l *EncryptedVolume) Name() string { return "encrypted volume" }

// Node returns the device-mapper path of the unlocked volume.
func (l *EncryptedVolume) Node() string {
	return "/dev/mapper/" + l.volume
}

// Open unlocks the volume on the persisted loop device using the key file.
// Opening an already-unlocked volume is a no-op.
func (l *EncryptedVolume) Open(ctx context.Context) error {
	unlocked, err := l.fs.Exists(l.Node())
	if err != nil {
		return err
	}
	if unlocked {
		return nil
	}

	device, err := l.store.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no loop device allocated: open the loop layer first")
		}
		return err
	}

	// dm-crypt module load is one of the explicitly result-checked steps.
	if _, err := l.run.Run(ctx, execx.Command{
		Caption: "loading dm-crypt kernel module",
		Argv:    []string{"modprobe", "dm-crypt"},
	}); err != nil {
		return err
	}

	_, err = l.run.Run(ctx, execx.Command{
		Caption: fmt.Sprintf("unlocking volume %s on %s", l.volume, device),
		Argv:    []string{"cryptsetup", "open", "--key-file", l.keyFile, device, l.volume},
	})
	return err
}

// Close locks the volume by its fixed name. Closing an already-locked
// volume is a no-op.
func (l *EncryptedVolume) Close(ctx context.Context) error {
	unlocked, err := l.fs.Exists(l.Node())
	if err != nil {
		return err
	}
	if !unlocked {
		return nil
	}

	_, err = l.run.Run(ctx, execx.Command{
		Caption: fmt.Sprintf("locking volume %s", l.volume),
		Argv:    []string{"cryptsetup", "close", l.volume},
	})
	return err
}

// Format initializes LUKS on the persisted loop device. Irreversibly
// destroys whatever the device held.
func (l *EncryptedVolume) Format(ctx context.Context) error {
	device, err := l.store.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no loop device allocated: open the loop layer first")
		}
		return err
	}

	_, err = l.run.Run(ctx, execx.Command{
		Caption:     fmt.Sprintf("formatting %s as an encrypted volume", device),
		Argv:        []string{"cryptsetup", "luksFormat", "--batch-mode", "--key-file", l.keyFile, device},
		Destructive: true,
	})
	return err
}
