package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/loopvault/loopvault/internal/config"
	"github.com/loopvault/loopvault/internal/execx"
	"github.com/loopvault/loopvault/internal/fsops"
	"github.com/loopvault/loopvault/internal/layers"
	"github.com/loopvault/loopvault/internal/state"
)

// fakeLock implements Locker and counts acquisitions.
type fakeLock struct {
	acquired int
	released int
	fail     error
}

func (l *fakeLock) Acquire() error {
	if l.fail != nil {
		return l.fail
	}
	l.acquired++
	return nil
}

func (l *fakeLock) Release() error {
	l.released++
	return nil
}

// fixture wires an Engine against fakes that model the external effects of
// each tool: sshfs and mount flip the mount table, cryptsetup creates and
// removes the mapper node.
type fixture struct {
	eng    *Engine
	run    *execx.ScriptRunner
	fs     *fsops.FakeFS
	store  *state.MemLoopStore
	mounts *layers.FakeMountTable
	lock   *fakeLock
	cfg    *config.Config
	paths  *config.Paths
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Remote = "user@host:backup"
	cfg.Source = "/home/user/documents"
	cfg.Excludes = []string{".cache", "*.tmp"}

	paths := config.PathsIn("/vault")
	run := execx.NewScriptRunner()
	fs := fsops.NewFakeFS()
	store := state.NewMemLoopStore()
	mounts := layers.NewFakeMountTable()
	lock := &fakeLock{}

	node := "/dev/mapper/" + cfg.VolumeName
	run.SetOutput("losetup", "/dev/loop0")
	run.OnRun = func(cmd execx.Command) {
		switch cmd.Argv[0] {
		case "sshfs":
			mounts.Mounted[paths.RemotePoint] = true
		case "fusermount":
			mounts.Mounted[paths.RemotePoint] = false
		case "mount":
			mounts.Mounted[paths.DataPoint] = true
		case "umount":
			mounts.Mounted[paths.DataPoint] = false
		case "cryptsetup":
			switch cmd.Argv[1] {
			case "open":
				fs.Seed(node, []byte{})
			case "close":
				_ = fs.Remove(node)
			}
		}
	}

	eng := New(cfg, paths, run, fs, store, mounts, lock)
	eng.SetOutput(func(format string, args ...interface{}) {
		t.Logf(format, args...)
	})

	return &fixture{eng: eng, run: run, fs: fs, store: store, mounts: mounts, lock: lock, cfg: cfg, paths: paths}
}

func (f *fixture) stackIsDown(t *testing.T) {
	t.Helper()
	if f.mounts.Mounted[f.paths.RemotePoint] {
		t.Error("remote mount still active")
	}
	if f.mounts.Mounted[f.paths.DataPoint] {
		t.Error("data mount still active")
	}
	if exists, _ := f.fs.Exists("/dev/mapper/" + f.cfg.VolumeName); exists {
		t.Error("volume still unlocked")
	}
	if _, err := f.store.Load(); !errors.Is(err, os.ErrNotExist) {
		t.Error("loop device identifier still persisted")
	}
}

func TestRunWorkflow_OpenThenCloseLeavesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.eng.RunWorkflow(ctx, "open"); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if device, err := f.store.Load(); err != nil || device != "/dev/loop0" {
		t.Fatalf("persisted device = %q, %v; want /dev/loop0", device, err)
	}
	if !f.mounts.Mounted[f.paths.DataPoint] {
		t.Fatal("data mount not active after open")
	}

	if err := f.eng.RunWorkflow(ctx, "close"); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	f.stackIsDown(t)
}

func TestRunWorkflow_CloseTwiceIsNoError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.eng.RunWorkflow(ctx, "close"); err != nil {
		t.Fatalf("first close failed: %v", err)
	}

	calls := len(f.run.Calls)
	if err := f.eng.RunWorkflow(ctx, "close"); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if len(f.run.Calls) != calls {
		t.Errorf("second close ran %d extra commands", len(f.run.Calls)-calls)
	}
}

func TestRunWorkflow_CreateWithoutRemoteMutatesNothing(t *testing.T) {
	f := newFixture(t)

	err := f.eng.RunWorkflow(context.Background(), "create")
	if !errors.Is(err, layers.ErrNotConnected) {
		t.Fatalf("create = %v, want ErrNotConnected", err)
	}
	if len(f.run.Calls) != 0 {
		t.Errorf("create ran %d commands without the remote mounted", len(f.run.Calls))
	}
	if exists, _ := f.fs.Exists(f.eng.KeyPath()); exists {
		t.Error("key was generated despite the connectivity failure")
	}
}

func TestRunWorkflow_CreateBuildsAndClosesStack(t *testing.T) {
	f := newFixture(t)
	f.mounts.Mounted[f.paths.RemotePoint] = true

	if err := f.eng.RunWorkflow(context.Background(), "create"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Key generated once under the root.
	key, err := f.fs.ReadFile(f.eng.KeyPath())
	if err != nil {
		t.Fatalf("key not generated: %v", err)
	}
	if len(key) != f.cfg.KeySize {
		t.Errorf("key size = %d, want %d", len(key), f.cfg.KeySize)
	}

	progs := strings.Join(f.run.Programs(), " ")
	for _, tool := range []string{"dd", "losetup", "cryptsetup", "mkfs.ext4", "mount", "chown", "umount"} {
		if !strings.Contains(progs, tool) {
			t.Errorf("create never ran %s (programs: %s)", tool, progs)
		}
	}

	// create leaves no resources open.
	if f.mounts.Mounted[f.paths.DataPoint] {
		t.Error("data mount still active after create")
	}
	if _, err := f.store.Load(); !errors.Is(err, os.ErrNotExist) {
		t.Error("loop identifier still persisted after create")
	}
}

func TestRunWorkflow_BackupRunsFullCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.eng.RunWorkflow(ctx, "backup"); err != nil {
		t.Fatalf("backup failed: %v", err)
	}

	var rsync *execx.Command
	for i := range f.run.Calls {
		if len(f.run.Calls[i].Argv) > 0 && f.run.Calls[i].Argv[0] == "rsync" {
			rsync = &f.run.Calls[i]
		}
	}
	if rsync == nil {
		t.Fatal("backup never ran rsync")
	}

	argv := strings.Join(rsync.Argv, " ")
	for _, part := range []string{"--delete", "--exclude=.cache", "--exclude=*.tmp", "/home/user/documents/", f.paths.DataPoint + "/"} {
		if !strings.Contains(argv, part) {
			t.Errorf("rsync argv missing %q: %s", part, argv)
		}
	}

	f.stackIsDown(t)
}

func TestRunWorkflow_UnwindClosesOpenedLayers(t *testing.T) {
	f := newFixture(t)
	f.run.FailWith("cryptsetup", fmt.Errorf("bad key"))

	err := f.eng.RunWorkflow(context.Background(), "open")
	if err == nil {
		t.Fatal("open succeeded despite cryptsetup failure")
	}

	// The loop device and remote mount opened before the failure must be
	// released again.
	if _, loadErr := f.store.Load(); !errors.Is(loadErr, os.ErrNotExist) {
		t.Error("loop identifier not cleared by unwind")
	}
	if f.mounts.Mounted[f.paths.RemotePoint] {
		t.Error("remote mount not closed by unwind")
	}

	progs := f.run.Programs()
	last := progs[len(progs)-1]
	if last != "fusermount" {
		t.Errorf("last command = %s, want fusermount (unwind runs bottom-up)", last)
	}
}

func TestRunWorkflow_SkippedStepContinuesWithoutUnwind(t *testing.T) {
	f := newFixture(t)
	f.run.FailWith("cryptsetup", execx.ErrSkipped)

	if err := f.eng.RunWorkflow(context.Background(), "open"); err != nil {
		t.Fatalf("open = %v, want nil after a skipped step", err)
	}

	// The workflow carried on to the filesystem mount.
	progs := strings.Join(f.run.Programs(), " ")
	if !strings.Contains(progs, "mount") {
		t.Errorf("mount never ran after the skip: %s", progs)
	}
	if f.mounts.Mounted[f.paths.RemotePoint] != true {
		t.Error("skip must not trigger unwind")
	}
}

func TestRunWorkflow_AbortUnwinds(t *testing.T) {
	f := newFixture(t)
	f.run.FailWith("cryptsetup", execx.ErrAborted)

	err := f.eng.RunWorkflow(context.Background(), "open")
	if !errors.Is(err, execx.ErrAborted) {
		t.Fatalf("open = %v, want ErrAborted", err)
	}
	if f.mounts.Mounted[f.paths.RemotePoint] {
		t.Error("remote mount not closed after abort")
	}
}

func TestRunWorkflow_LockContentionRunsNothing(t *testing.T) {
	f := newFixture(t)
	f.lock.fail = state.ErrLockHeld

	err := f.eng.RunWorkflow(context.Background(), "open")
	if !errors.Is(err, state.ErrLockHeld) {
		t.Fatalf("open = %v, want ErrLockHeld", err)
	}
	if len(f.run.Calls) != 0 {
		t.Errorf("workflow ran %d commands without the lock", len(f.run.Calls))
	}
}

func TestRunWorkflow_UnknownName(t *testing.T) {
	f := newFixture(t)

	err := f.eng.RunWorkflow(context.Background(), "defragment")
	if !errors.Is(err, ErrUnknownWorkflow) {
		t.Fatalf("error = %v, want ErrUnknownWorkflow", err)
	}
}

func TestRunWorkflow_ReleasesLockAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.run.FailWith("sshfs", fmt.Errorf("connection refused"))

	if err := f.eng.RunWorkflow(context.Background(), "open"); err == nil {
		t.Fatal("open succeeded despite sshfs failure")
	}
	if f.lock.acquired != 1 || f.lock.released != 1 {
		t.Errorf("lock acquired %d released %d, want 1/1", f.lock.acquired, f.lock.released)
	}
}

func TestSyncData_RequiresConfiguredSource(t *testing.T) {
	f := newFixture(t)
	f.cfg.Source = ""
	// Bring the stack up so only the sync step can fail.
	f.mounts.Mounted[f.paths.RemotePoint] = true
	f.mounts.Mounted[f.paths.DataPoint] = true

	err := f.eng.RunWorkflow(context.Background(), "sync")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("sync = %v, want ErrNotConfigured", err)
	}
}
