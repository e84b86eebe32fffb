package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/loopvault/loopvault/internal/execx"
)

// Step is one operation of a workflow. Undo, when non-nil, is the
// compensating close applied during unwind after a later step fails.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// Workflows returns the registry of workflow names to their ordered steps.
// The registry is the single source of truth for what each command does;
// the CLI enumerates it for help and dispatch.
func (e *Engine) Workflows() map[string][]Step {
	open := []Step{
		{Name: "open remote mount", Run: e.remote.Open, Undo: e.remote.Close},
		{Name: "attach loop device", Run: e.loop.Open, Undo: e.loop.Close},
		{Name: "unlock encrypted volume", Run: e.volume.Open, Undo: e.volume.Close},
		{Name: "mount filesystem", Run: e.data.Open, Undo: e.data.Close},
	}

	// Closes in reverse stacking order; every close is idempotent so the
	// whole sequence can run against a partially-open stack.
	closeSteps := []Step{
		{Name: "unmount filesystem", Run: e.data.Close},
		{Name: "lock encrypted volume", Run: e.volume.Close},
		{Name: "detach loop device", Run: e.loop.Close},
		{Name: "close remote mount", Run: e.remote.Close},
	}

	createSteps := []Step{
		{Name: "check remote connectivity", Run: e.requireRemote},
		{Name: "ensure key material", Run: e.ensureKey},
		{Name: "allocate image file", Run: e.allocateImage},
		{Name: "attach loop device", Run: e.loop.Open, Undo: e.loop.Close},
		{Name: "format encrypted volume", Run: e.volume.Format},
		{Name: "unlock encrypted volume", Run: e.volume.Open, Undo: e.volume.Close},
		{Name: "create filesystem", Run: e.data.Format},
		{Name: "mount filesystem", Run: e.data.Open, Undo: e.data.Close},
		{Name: "set owner", Run: e.chownData},
	}
	// create leaves no resources open.
	createSteps = append(createSteps, closeSteps...)

	backupSteps := append([]Step{}, open...)
	backupSteps = append(backupSteps, Step{Name: "synchronize data", Run: e.syncData})
	backupSteps = append(backupSteps, closeSteps...)

	return map[string][]Step{
		"open":   open,
		"close":  closeSteps,
		"create": createSteps,
		"backup": backupSteps,

		// Single-layer operations for manual recovery.
		"connect":    {{Name: "open remote mount", Run: e.remote.Open}},
		"disconnect": {{Name: "close remote mount", Run: e.remote.Close}},
		"attach":     {{Name: "attach loop device", Run: e.loop.Open}},
		"detach":     {{Name: "detach loop device", Run: e.loop.Close}},
		"detach-all": {{Name: "detach all loop devices", Run: e.loop.DetachAll}},
		"unlock":     {{Name: "unlock encrypted volume", Run: e.volume.Open}},
		"lock":       {{Name: "lock encrypted volume", Run: e.volume.Close}},
		"mount":      {{Name: "mount filesystem", Run: e.data.Open}},
		"unmount":    {{Name: "unmount filesystem", Run: e.data.Close}},
		"sync":       {{Name: "synchronize data", Run: e.syncData}},
		"mkimage": {
			{Name: "check remote connectivity", Run: e.requireRemote},
			{Name: "allocate image file", Run: e.allocateImage},
		},
		"mkkey": {{Name: "ensure key material", Run: e.ensureKey}},
	}
}

// RunWorkflow executes the named workflow under the advisory lock. A failed
// or aborted step stops the workflow and closes the layers it opened, in
// reverse order. A skipped step executes nothing and the workflow continues.
func (e *Engine) RunWorkflow(ctx context.Context, name string) error {
	steps, ok := e.Workflows()[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWorkflow, name)
	}

	if err := e.lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		_ = e.lock.Release()
	}()

	var undo []Step
	for _, step := range steps {
		err := step.Run(ctx)
		if err == nil {
			if step.Undo != nil {
				undo = append(undo, step)
			}
			continue
		}

		if errors.Is(err, execx.ErrSkipped) {
			e.out("skipped: %s", step.Name)
			continue
		}

		e.unwind(ctx, undo)
		return fmt.Errorf("workflow %s failed at %q: %w", name, step.Name, err)
	}

	return nil
}

// unwind closes already-opened layers in reverse order. Unwind failures are
// reported but never mask the original error.
func (e *Engine) unwind(ctx context.Context, undo []Step) {
	for i := len(undo) - 1; i >= 0; i-- {
		e.out("unwinding: %s", undo[i].Name)
		if err := undo[i].Undo(ctx); err != nil {
			e.out("warning: unwind of %s failed: %v", undo[i].Name, err)
		}
	}
}
