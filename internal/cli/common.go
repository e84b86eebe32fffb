package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/loopvault/loopvault/internal/clock"
	"github.com/loopvault/loopvault/internal/config"
	"github.com/loopvault/loopvault/internal/engine"
	"github.com/loopvault/loopvault/internal/execx"
	"github.com/loopvault/loopvault/internal/fsops"
	"github.com/loopvault/loopvault/internal/layers"
	"github.com/loopvault/loopvault/internal/state"
)

// Exit codes for distinguished failures.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitAborted       = 2
	ExitUnconfigured  = 10
	ExitNotConnected  = 11
	ExitUnknownVerb   = 12
	ExitLockContended = 13
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, engine.ErrNotConfigured):
		return ExitUnconfigured
	case errors.Is(err, layers.ErrNotConnected):
		return ExitNotConnected
	case errors.Is(err, engine.ErrUnknownWorkflow):
		return ExitUnknownVerb
	case errors.Is(err, state.ErrLockHeld):
		return ExitLockContended
	case errors.Is(err, execx.ErrAborted):
		return ExitAborted
	default:
		// Propagate the failing tool's own exit status when there is one.
		var exitErr *execx.ExitError
		if errors.As(err, &exitErr) && exitErr.Code > 0 {
			return exitErr.Code
		}
		return ExitFailure
	}
}

// newEngine loads the configuration and wires an Engine with real
// implementations of all dependencies.
func newEngine() (*engine.Engine, *config.Config, error) {
	fs := fsops.NewRealFS()

	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, nil, err
	}
	if err := paths.EnsureDirectories(fs); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(fs, paths.Config)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: run 'loopvault init' and edit %s", engine.ErrNotConfigured, paths.Config)
		}
		return nil, nil, fmt.Errorf("%w: %v", engine.ErrNotConfigured, err)
	}

	if !cfg.Color {
		color.NoColor = true
	}

	runner := execx.NewExecRunner(cfg.Confirm || verbose)
	store := state.NewFileLoopStore(fs, paths.LoopFile)
	mounts := layers.NewProcMounts(fs)
	lock := state.NewFlock(paths.LockFile, &clock.RealClock{})

	return engine.New(cfg, paths, runner, fs, store, mounts, lock), cfg, nil
}

// runWorkflow executes a workflow and prints the post-workflow status
// report when enabled.
func runWorkflow(name string) error {
	eng, cfg, err := newEngine()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := eng.RunWorkflow(ctx, name); err != nil {
		return err
	}

	if cfg.ShowStatus {
		result, err := eng.Status(ctx)
		if err != nil {
			PrintWarning(fmt.Sprintf("status unavailable: %v", err))
			return nil
		}
		printStatus(result)
	}
	return nil
}
