//go:build windows
// +build windows

package instance

import (
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sys/windows"
)

// IsProcessRunning reports whether pid names a live process, preferring
// the Windows API and falling back to tasklist when OpenProcess is
// denied (e.g. the process belongs to another user).
func IsProcessRunning(pid int) (bool, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return checkViaTasklist(pid)
	}
	defer windows.CloseHandle(handle)
	return true, nil
}

// checkViaTasklist is a fallback for when OpenProcess is denied.
func checkViaTasklist(pid int) (bool, error) {
	cmd := exec.Command("tasklist", "/FI", fmt.Sprintf("PID eq %d", pid), "/NH", "/FO", "CSV")
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("tasklist command failed: %w", err)
	}
	outputStr := string(output)
	return strings.Contains(outputStr, fmt.Sprintf("%d", pid)), nil
}

// KillProcess forcefully terminates a process.
func KillProcess(pid int) error {
	cmd := exec.Command("taskkill", "/F", "/PID", fmt.Sprintf("%d", pid))
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to kill process %d: %w (output: %s)", pid, err, string(output))
	}
	return nil
}
