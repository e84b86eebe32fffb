// Package execx runs the external tools loopvault supervises.
//
// Every privileged step is a typed Command with an explicit argument vector;
// nothing is ever passed through a shell, so configuration values (remote
// locations, exclude patterns) cannot inject into a command line. The Runner
// optionally previews each command and asks the operator for a three-way
// decision before executing it.
package execx

import (
	"errors"
	"fmt"
	"strings"
)

// Command is a single named external operation.
type Command struct {
	// Caption is the operator-facing description of the step.
	Caption string

	// Argv is the program and its arguments. An empty Argv makes the
	// command a pure notice: the caption is shown, nothing executes.
	Argv []string

	// Destructive marks irreversible steps; a warning is always shown
	// before execution, even when confirmation is disabled.
	Destructive bool
}

// Notice returns a caption-only command that displays text without
// executing anything.
func Notice(caption string) Command {
	return Command{Caption: caption}
}

// String renders the argv for preview.
func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

var (
	// ErrAborted indicates the operator aborted the workflow at a prompt.
	ErrAborted = errors.New("aborted by operator")

	// ErrSkipped indicates the operator skipped a single step at a prompt.
	ErrSkipped = errors.New("step skipped by operator")
)

// ExitError reports an external tool that exited non-zero.
type ExitError struct {
	Caption string
	Code    int
	Err     error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Caption, e.Code)
}

// Unwrap returns the underlying exec error.
func (e *ExitError) Unwrap() error {
	return e.Err
}
