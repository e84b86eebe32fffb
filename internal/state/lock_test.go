package state

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/loopvault/loopvault/internal/clock"
)

func TestFlock_AcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	lock := NewFlock(path, clk)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
}

func TestFlock_SecondHolderIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	clk := &clock.RealClock{}

	first := NewFlock(path, clk)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	defer func() {
		_ = first.Release()
	}()

	second := NewFlock(path, clk)
	if err := second.Acquire(); !errors.Is(err, ErrLockHeld) {
		t.Errorf("second Acquire = %v, want ErrLockHeld", err)
	}
}

func TestFlock_ReacquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	clk := &clock.RealClock{}

	first := NewFlock(path, clk)
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	second := NewFlock(path, clk)
	if err := second.Acquire(); err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	_ = second.Release()
}

func TestFlock_ReleaseWithoutAcquireIsNoop(t *testing.T) {
	lock := NewFlock(filepath.Join(t.TempDir(), "lock"), &clock.RealClock{})
	if err := lock.Release(); err != nil {
		t.Errorf("Release without Acquire = %v, want nil", err)
	}
}
