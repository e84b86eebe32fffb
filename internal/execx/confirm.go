package execx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Decision is the operator's answer to a confirmation prompt.
type Decision int

const (
	// Proceed executes the step.
	Proceed Decision = iota
	// Skip executes nothing for this step and continues the workflow.
	Skip
	// Abort cancels the remaining workflow.
	Abort
)

// Confirmer reads confirmation decisions from the operator.
//
// An empty answer (plain Enter) proceeds, matching the historic behavior of
// confirmation-mode runs; "s" skips the step and "a" or "q" aborts the
// workflow. On a non-terminal stdin every answer is Proceed so that piped
// invocations never block.
type Confirmer struct {
	in  *bufio.Reader
	out io.Writer
	tty bool
}

// NewConfirmer creates a Confirmer reading from in. Terminal detection uses
// the process stdin regardless of the reader, so tests can inject input.
func NewConfirmer(in io.Reader, out io.Writer) *Confirmer {
	return &Confirmer{
		in:  bufio.NewReader(in),
		out: out,
		tty: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewTTYConfirmer creates a Confirmer that always prompts, for tests.
func NewTTYConfirmer(in io.Reader, out io.Writer) *Confirmer {
	return &Confirmer{
		in:  bufio.NewReader(in),
		out: out,
		tty: true,
	}
}

// Ask prompts for and returns a decision.
func (c *Confirmer) Ask() (Decision, error) {
	if !c.tty {
		return Proceed, nil
	}

	fmt.Fprint(c.out, "  run? [Enter=yes, s=skip, a=abort] ")
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		// EOF on stdin aborts rather than silently proceeding.
		return Abort, nil
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return Proceed, nil
	case "s", "skip":
		return Skip, nil
	case "a", "q", "abort", "quit", "n", "no":
		return Abort, nil
	default:
		return Proceed, nil
	}
}
