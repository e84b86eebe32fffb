package execx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
)

// Runner executes external commands.
type Runner interface {
	// Run executes cmd and returns its trimmed stdout. Caption-only
	// commands display the caption and return without executing.
	Run(ctx context.Context, cmd Command) (string, error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct {
	// Interactive enables the confirmation prompt before each command.
	Interactive bool

	// Confirmer supplies operator decisions when Interactive is set.
	Confirmer *Confirmer

	// Out receives captions, previews and warnings.
	Out io.Writer

	// ToolErr receives the external tools' stderr.
	ToolErr io.Writer
}

// NewExecRunner creates a runner writing to stdout/stderr.
func NewExecRunner(interactive bool) *ExecRunner {
	return &ExecRunner{
		Interactive: interactive,
		Confirmer:   NewConfirmer(os.Stdin, os.Stdout),
		Out:         os.Stdout,
		ToolErr:     os.Stderr,
	}
}

var (
	captionColor = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow, color.Bold)
)

// Run executes cmd, previewing and confirming it first when interactive.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	if cmd.Caption != "" {
		_, _ = captionColor.Fprintf(r.Out, "▸ %s\n", cmd.Caption)
	}
	if len(cmd.Argv) == 0 {
		// Pure notice.
		return "", nil
	}

	if cmd.Destructive {
		_, _ = warnColor.Fprintf(r.Out, "⚠ destructive: %s\n", cmd.String())
	}

	if r.Interactive {
		fmt.Fprintf(r.Out, "  $ %s\n", cmd.String())
		switch decision, err := r.Confirmer.Ask(); {
		case err != nil:
			return "", err
		case decision == Skip:
			return "", fmt.Errorf("%s: %w", cmd.Caption, ErrSkipped)
		case decision == Abort:
			return "", fmt.Errorf("%s: %w", cmd.Caption, ErrAborted)
		}
	}

	return r.exec(ctx, cmd)
}

func (r *ExecRunner) exec(ctx context.Context, cmd Command) (string, error) {
	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Stderr = r.ToolErr

	out, err := c.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{Caption: cmd.Caption, Code: exitErr.ExitCode(), Err: err}
		}
		return "", fmt.Errorf("%s: %w", cmd.Caption, err)
	}

	return strings.TrimSpace(string(out)), nil
}
