package execx

import (
	"context"
	"fmt"
)

// ScriptRunner implements Runner with scripted results for testing. It
// records every command it receives and never executes anything.
type ScriptRunner struct {
	// Calls is the ordered list of commands Run received.
	Calls []Command

	// OnRun, when set, is invoked for every executed command so tests can
	// model the external effects (mount table changes, device nodes).
	OnRun func(cmd Command)

	outputs map[string]string
	errs    map[string]error
}

// NewScriptRunner creates an empty ScriptRunner. Unscripted commands
// succeed with empty output.
func NewScriptRunner() *ScriptRunner {
	return &ScriptRunner{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

// SetOutput scripts the stdout returned when a command whose program is
// tool runs.
func (r *ScriptRunner) SetOutput(tool, output string) {
	r.outputs[tool] = output
}

// FailWith scripts an error for the given tool.
func (r *ScriptRunner) FailWith(tool string, err error) {
	r.errs[tool] = err
}

// Run records cmd and returns its scripted result.
func (r *ScriptRunner) Run(ctx context.Context, cmd Command) (string, error) {
	r.Calls = append(r.Calls, cmd)
	if len(cmd.Argv) == 0 {
		return "", nil
	}

	tool := cmd.Argv[0]
	if err, ok := r.errs[tool]; ok {
		if err == ErrSkipped || err == ErrAborted {
			return "", fmt.Errorf("%s: %w", cmd.Caption, err)
		}
		return "", err
	}

	if r.OnRun != nil {
		r.OnRun(cmd)
	}
	return r.outputs[tool], nil
}

// Programs returns the program name of every executed (non-notice) call,
// in order.
func (r *ScriptRunner) Programs() []string {
	var progs []string
	for _, c := range r.Calls {
		if len(c.Argv) > 0 {
			progs = append(progs, c.Argv[0])
		}
	}
	return progs
}
