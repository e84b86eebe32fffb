package state

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/loopvault/loopvault/internal/clock"
)

// ErrLockHeld indicates another invocation holds the workflow lock.
var ErrLockHeld = errors.New("another loopvault invocation is running")

// Flock is an advisory lock guarding resource-mutating workflows. Two
// concurrent invocations against the same working directory would otherwise
// race on the identifier file and the mount points.
type Flock struct {
	path  string
	clock clock.Clock
	file  *os.File
}

// NewFlock creates a lock at path.
func NewFlock(path string, clk clock.Clock) *Flock {
	return &Flock{path: path, clock: clk}
}

// Acquire takes the lock without blocking. Returns ErrLockHeld when another
// process holds it. The holder's pid and acquisition time are written into
// the lock file for diagnostics only; the flock itself is authoritative.
func (l *Flock) Acquire() error {
	if l.file != nil {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if err == unix.EWOULDBLOCK {
			return fmt.Errorf("%w (lock file %s)", ErrLockHeld, l.path)
		}
		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}

	meta := fmt.Sprintf("pid %d at %s\n", os.Getpid(), l.clock.Now().Format("2006-01-02T15:04:05Z07:00"))
	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(meta), 0)

	l.file = f
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Flock) Release() error {
	if l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.path, err)
	}
	return closeErr
}
