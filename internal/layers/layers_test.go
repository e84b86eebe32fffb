package layers

import (
	"context"
	"testing"

	"github.com/loopvault/loopvault/internal/execx"
	"github.com/loopvault/loopvault/internal/fsops"
	"github.com/loopvault/loopvault/internal/state"
)

func TestRemoteMount_OpenIsNoopWhenAlreadyMounted(t *testing.T) {
	run := execx.NewScriptRunner()
	mounts := NewFakeMountTable()
	mounts.Mounted["/vault/remote"] = true
	layer := NewRemoteMount(run, fsops.NewFakeFS(), mounts, "user@host:backup", "/vault/remote")

	if err := layer.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(run.Calls) != 0 {
		t.Errorf("Open ran %d commands on an already-mounted remote", len(run.Calls))
	}
}

func TestRemoteMount_OpenMountsViaSSHFS(t *testing.T) {
	run := execx.NewScriptRunner()
	layer := NewRemoteMount(run, fsops.NewFakeFS(), NewFakeMountTable(), "user@host:backup", "/vault/remote")

	if err := layer.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if len(run.Calls) != 1 {
		t.Fatalf("Open ran %d commands, want 1", len(run.Calls))
	}
	argv := run.Calls[0].Argv
	want := []string{"sshfs", "user@host:backup", "/vault/remote"}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("argv = %v, want %v", argv, want)
		}
	}
}

func TestRemoteMount_CloseIsNoopWhenNotMounted(t *testing.T) {
	run := execx.NewScriptRunner()
	layer := NewRemoteMount(run, fsops.NewFakeFS(), NewFakeMountTable(), "user@host:backup", "/vault/remote")

	if err := layer.Close(context.Background()); err != nil {
		t.Fatalf("Close = %v, want nil", err)
	}
	if len(run.Calls) != 0 {
		t.Errorf("Close ran %d commands on an unmounted remote", len(run.Calls))
	}
}

func TestEncryptedVolume_OpenRequiresLoopDevice(t *testing.T) {
	run := execx.NewScriptRunner()
	layer := NewEncryptedVolume(run, fsops.NewFakeFS(), state.NewMemLoopStore(), "vault", "/vault/key")

	if err := layer.Open(context.Background()); err == nil {
		t.Fatal("Open succeeded without an allocated loop device")
	}
	if len(run.Calls) != 0 {
		t.Errorf("Open ran %d commands without a loop device", len(run.Calls))
	}
}

func TestEncryptedVolume_OpenUnlocksWithKeyFile(t *testing.T) {
	run := execx.NewScriptRunner()
	store := state.NewMemLoopStore()
	if err := store.Save("/dev/loop1"); err != nil {
		t.Fatal(err)
	}
	layer := NewEncryptedVolume(run, fsops.NewFakeFS(), store, "vault", "/vault/key")

	if err := layer.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	progs := run.Programs()
	if len(progs) != 2 || progs[0] != "modprobe" || progs[1] != "cryptsetup" {
		t.Fatalf("programs = %v, want [modprobe cryptsetup]", progs)
	}
	argv := run.Calls[1].Argv
	want := []string{"cryptsetup", "open", "--key-file", "/vault/key", "/dev/loop1", "vault"}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("argv = %v, want %v", argv, want)
		}
	}
}

func TestEncryptedVolume_OpenIsNoopWhenAlreadyUnlocked(t *testing.T) {
	run := execx.NewScriptRunner()
	fs := fsops.NewFakeFS()
	fs.Seed("/dev/mapper/vault", []byte{})
	layer := NewEncryptedVolume(run, fs, state.NewMemLoopStore(), "vault", "/vault/key")

	if err := layer.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(run.Calls) != 0 {
		t.Errorf("Open ran %d commands on an unlocked volume", len(run.Calls))
	}
}

func TestEncryptedVolume_CloseIsNoopWhenLocked(t *testing.T) {
	run := execx.NewScriptRunner()
	layer := NewEncryptedVolume(run, fsops.NewFakeFS(), state.NewMemLoopStore(), "vault", "/vault/key")

	if err := layer.Close(context.Background()); err != nil {
		t.Fatalf("Close = %v, want nil", err)
	}
	if len(run.Calls) != 0 {
		t.Errorf("Close ran %d commands on a locked volume", len(run.Calls))
	}
}

func TestEncryptedVolume_FormatIsDestructive(t *testing.T) {
	run := execx.NewScriptRunner()
	store := state.NewMemLoopStore()
	if err := store.Save("/dev/loop1"); err != nil {
		t.Fatal(err)
	}
	layer := NewEncryptedVolume(run, fsops.NewFakeFS(), store, "vault", "/vault/key")

	if err := layer.Format(context.Background()); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if len(run.Calls) != 1 || !run.Calls[0].Destructive {
		t.Error("luksFormat must run exactly once and be marked destructive")
	}
}

func TestFilesystemMount_OpenAndCloseAreIdempotent(t *testing.T) {
	run := execx.NewScriptRunner()
	mounts := NewFakeMountTable()
	layer := NewFilesystemMount(run, fsops.NewFakeFS(), mounts, "/dev/mapper/vault", "/vault/data")

	// Not mounted: Close is a no-op, Open mounts.
	if err := layer.Close(context.Background()); err != nil {
		t.Fatalf("Close on unmounted = %v, want nil", err)
	}
	if err := layer.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got := run.Programs(); len(got) != 1 || got[0] != "mount" {
		t.Fatalf("programs = %v, want [mount]", got)
	}

	// Mounted: Open is a no-op, Close unmounts.
	mounts.Mounted["/vault/data"] = true
	if err := layer.Open(context.Background()); err != nil {
		t.Fatalf("Open on mounted = %v, want nil", err)
	}
	if err := layer.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := run.Programs(); len(got) != 2 || got[1] != "umount" {
		t.Fatalf("programs = %v, want [mount umount]", got)
	}
}
