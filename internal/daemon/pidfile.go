package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// WritePIDFile writes the given process ID to path as decimal text.
// Workers write their own marker; the CLI only uses this in tests and
// fixtures.
func WritePIDFile(path string, pid int) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create PID file directory: %w", err)
	}

	content := fmt.Sprintf("%d\n", pid)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	return nil
}

// ReadPIDFile reads the process ID from the specified file. Surrounding
// whitespace is ignored.
func ReadPIDFile(path string) (int, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304 - path derived from session name
	if err != nil {
		// Return error without wrapping to preserve os.IsNotExist check
		return 0, err
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.ParseInt(pidStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %s", pidStr)
	}

	return int(pid), nil
}

// CheckPIDFile checks if the PID file exists and if the process is running.
// Returns: (running, pid, error)
// - running: true if process is running, false if stale or doesn't exist
// - pid: the PID from the file (0 if file doesn't exist)
// - error: any error reading the file (nil if file doesn't exist).
func CheckPIDFile(path string) (bool, int, error) {
	pid, err := ReadPIDFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, 0, nil
		}
		return false, 0, err
	}

	return IsProcessRunning(pid), pid, nil
}

// IsProcessRunning probes pid with signal 0, which checks existence and
// permissions without delivering anything to the process.
func IsProcessRunning(pid int) bool {
	// 0 and negative values address process groups, not a single worker.
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}

	// EPERM: the process exists but belongs to someone else.
	return errors.Is(err, syscall.EPERM)
}
