//go:build !windows
// +build !windows

package instance

import (
	"fmt"
	"os"
	"syscall"
)

// IsProcessRunning reports whether pid names a live process, using the
// POSIX convention that signal 0 performs existence/permission checks
// without actually delivering a signal.
func IsProcessRunning(pid int) (bool, error) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		if err == syscall.ESRCH {
			return false, nil
		}
		if err == syscall.EPERM {
			// Process exists but is owned by someone else.
			return true, nil
		}
		return false, nil
	}
	return true, nil
}

// KillProcess forcefully terminates a process.
func KillProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	return nil
}
